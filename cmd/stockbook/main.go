package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stockbook/internal/app"
	"stockbook/internal/config"
	"stockbook/internal/core"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, &stdinPicker{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// stdinPicker asks for the export destination on the terminal. An empty
// answer cancels, mirroring a dismissed save dialog.
type stdinPicker struct{}

func (*stdinPicker) Pick(suggested string) (string, error) {
	fmt.Printf("Destination path [%s]: ", suggested)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading destination: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", core.ErrCancelled
	}
	return line, nil
}

// readPassword prompts for a password without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:   "stockbook",
	Short: "Local-first inventory manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Store:       %s\n", cfg.StorePath())
		fmt.Printf("Backup Dir:  %s\n", cfg.BackupDir())
		fmt.Printf("Max Backups: %d\n", cfg.Backup.MaxCount)
		return nil
	},
}

// setup command
var setupCmd = &cobra.Command{
	Use:   "setup USERNAME",
	Short: "Create the account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.Setup(args[0], password)
		fmt.Println(result.Message)
		if !result.Success {
			return fmt.Errorf("setup failed")
		}
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login USERNAME",
	Short: "Verify credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remember, _ := cmd.Flags().GetBool("remember")

		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.Login(args[0], password, remember)
		fmt.Println(result.Message)
		if !result.Success {
			return fmt.Errorf("login failed")
		}
		if result.SessionToken != "" {
			fmt.Printf("Session token: %s\n", result.SessionToken)
		}
		return nil
	},
}

// logout command
var logoutCmd = &cobra.Command{
	Use:   "logout TOKEN",
	Short: "Revoke a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.Logout(args[0])
		fmt.Println(result.Message)
		return nil
	},
}

// session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionValidateCmd = &cobra.Command{
	Use:   "validate TOKEN",
	Short: "Check whether a session token is valid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.ValidateSession(args[0])
		if err != nil {
			return err
		}
		if !result.Valid {
			fmt.Println("Session is invalid.")
			return nil
		}
		fmt.Printf("Session is valid for %s\n", result.User.Username)
		return nil
	},
}

// passwd command
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the account password",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := readPassword("Current password: ")
		if err != nil {
			return err
		}
		updated, err := readPassword("New password: ")
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.ChangePassword(current, updated)
		fmt.Println(result.Message)
		if !result.Success {
			return fmt.Errorf("password change failed")
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups",
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Export the store to a chosen destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.CreateManualBackup()
		if result.Cancelled {
			return nil
		}
		fmt.Println(result.Message)
		if !result.Success {
			return fmt.Errorf("backup failed")
		}
		fmt.Printf("Written to %s\n", result.Path)
		return nil
	},
}

var backupInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "View snapshot directory status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.BackupInfo()
		if err != nil {
			return err
		}

		fmt.Printf("Backup dir: %s\n", info.BackupDir)
		fmt.Printf("Snapshots:  %d\n", info.BackupCount)
		if info.BackupCount > 0 {
			fmt.Printf("Last:       %s\n", info.LastBackupTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// item command
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items",
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.Inventory().ListItems()
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No items.")
			return nil
		}
		for _, item := range items {
			category := "-"
			if item.CategoryName != nil {
				category = *item.CategoryName
			}
			fmt.Printf("%-36s  %-20s  %-12s  qty:%-5d  %.2f\n",
				item.ID, item.Name, category, item.Quantity, item.UnitPrice)
		}
		return nil
	},
}

var itemAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sku, _ := cmd.Flags().GetString("sku")
		qty, _ := cmd.Flags().GetInt64("qty")
		price, _ := cmd.Flags().GetFloat64("price")
		notes, _ := cmd.Flags().GetString("notes")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.Inventory().CreateItem(args[0], sku, nil, qty, price, notes)
		if err != nil {
			return fmt.Errorf("adding item: %w", err)
		}

		fmt.Printf("Added %s (%s)\n", item.Name, item.ID)
		return nil
	},
}

// category command
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		categories, err := a.Inventory().ListCategories()
		if err != nil {
			return err
		}

		if len(categories) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		for _, c := range categories {
			fmt.Printf("%-36s  %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Inventory().CreateCategory(args[0])
		if err != nil {
			return fmt.Errorf("adding category: %w", err)
		}

		fmt.Printf("Added %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run with periodic backups until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		a.Start()

		// The close snapshot must finish before the store handle goes away,
		// so termination signals funnel through the same Close path.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return a.Close()
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	sessionCmd.AddCommand(sessionValidateCmd)

	backupCmd.AddCommand(backupNowCmd)
	backupCmd.AddCommand(backupInfoCmd)

	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemAddCmd)
	itemAddCmd.Flags().String("sku", "", "Stock keeping unit")
	itemAddCmd.Flags().Int64("qty", 0, "Initial quantity")
	itemAddCmd.Flags().Float64("price", 0, "Unit price")
	itemAddCmd.Flags().String("notes", "", "Free-form notes")

	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolP("remember", "r", false, "Issue a remember-me session token")
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(runCmd)
}
