package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"stockbook/internal/auth"
	"stockbook/internal/backup"
	"stockbook/internal/config"
	"stockbook/internal/core"
	"stockbook/internal/database"
	"stockbook/internal/inventory"
)

// App is the application layer between the UI/IPC surface and the core
// components. It constructs everything from config, owns the single store
// handle, and manages the startup and shutdown sequences.
type App struct {
	cfg      *config.Config
	store    *database.Store
	vault    *auth.Vault
	sessions *auth.Sessions
	backups  *backup.Scheduler
	engine   *backup.Engine
	items    *inventory.Repository
	logger   core.Logger
	logFile  *os.File
}

// New creates a fully wired App from the given config. picker supplies the
// manual-export destination (a save dialog in the UI, a prompt in the CLI)
// and may be nil. The caller must call Close when done.
func New(cfg *config.Config, picker backup.DestinationPicker) (*App, error) {
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	store, err := database.Open(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := store.MigrateUp(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	slogger, logFile, err := newLogger(cfg.LogDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	clock := core.RealClock{}
	sched := core.TickerScheduler{}

	sessions := auth.NewSessions(store.DB(), sched, clock, core.RandomTokenGenerator{}, logger)
	vault := auth.NewVault(store.DB(), clock, logger, sessions)

	engine := backup.NewEngine(
		store.Path(), cfg.BackupDir(),
		cfg.Backup.Prefix, cfg.Backup.Extension, cfg.Backup.MaxCount,
		store, clock, logger,
	)
	backups := backup.NewScheduler(
		engine, sched, clock, picker,
		time.Duration(cfg.Backup.StartupThresholdHours)*time.Hour,
		logger,
	)

	items := inventory.NewRepository(store.DB(), clock, core.UUIDGenerator{}, logger)

	return &App{
		cfg:      cfg,
		store:    store,
		vault:    vault,
		sessions: sessions,
		backups:  backups,
		engine:   engine,
		items:    items,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// Start runs the startup backup check and begins the recurring timers.
// A failed startup snapshot is logged but never blocks startup.
func (a *App) Start() {
	if result, err := a.backups.CheckOnStartup(); err != nil {
		a.logger.Error("startup backup check failed", "error", err)
	} else if result.Created {
		a.logger.Info("startup snapshot created", "path", result.Path)
	} else {
		a.logger.Info("startup snapshot skipped", "reason", result.Reason)
	}

	a.backups.StartPeriodic(time.Duration(a.cfg.Backup.IntervalHours) * time.Hour)
	a.sessions.StartSweeper(time.Duration(a.cfg.Session.SweepIntervalHours) * time.Hour)
}

// Close stops the timers, takes the close-triggered snapshot, and only then
// tears down the store handle. A failed close snapshot is logged but must
// not block shutdown.
func (a *App) Close() error {
	a.backups.StopPeriodic()
	a.sessions.StopSweeper()

	if _, err := a.backups.OnClose(); err != nil {
		a.logger.Error("close snapshot failed", "error", err)
	}

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// Inventory returns the item/category repository.
func (a *App) Inventory() *inventory.Repository {
	return a.items
}

// Operation surface exposed to the UI/IPC layer.

// OpResult is the generic success/message response shape.
type OpResult struct {
	Success bool
	Message string
}

// LoginResult carries a session token when remember-me was requested.
type LoginResult struct {
	Success      bool
	Message      string
	SessionToken string
	User         *auth.Identity
}

// SessionResult reports whether a token is still valid.
type SessionResult struct {
	Valid bool
	User  *auth.Identity
}

// ManualBackupResult distinguishes user cancellation from failure so the
// caller can suppress the alert for cancellation.
type ManualBackupResult struct {
	Success   bool
	Cancelled bool
	Message   string
	Path      string
}

// BackupInfoResult is the read-only snapshot directory summary.
type BackupInfoResult struct {
	BackupDir      string
	LastBackupTime time.Time
	BackupCount    int
}

// CheckSetup reports whether the account has been provisioned.
func (a *App) CheckSetup() (bool, error) {
	return a.vault.Provisioned()
}

// Setup provisions the single account.
func (a *App) Setup(username, password string) OpResult {
	if err := a.vault.Provision(username, password); err != nil {
		return OpResult{Message: err.Error()}
	}
	return OpResult{Success: true, Message: "account created"}
}

// Login verifies credentials and, when rememberMe is requested and enabled,
// issues a session token.
func (a *App) Login(username, password string, rememberMe bool) LoginResult {
	identity, err := a.vault.Verify(username, password)
	if err != nil {
		return LoginResult{Message: err.Error()}
	}

	result := LoginResult{Success: true, Message: "login successful", User: identity}
	if rememberMe && a.cfg.Session.RememberMeEnabled {
		token, err := a.sessions.Issue(identity.ID, a.cfg.Session.ExpiryDays)
		if err != nil {
			// The credentials were fine; report the login but without a token.
			a.logger.Error("issuing session failed", "error", err)
			return result
		}
		result.SessionToken = token
	}
	return result
}

// Logout revokes the given session token. An empty or unknown token still
// succeeds; logout is idempotent.
func (a *App) Logout(sessionToken string) OpResult {
	if sessionToken != "" {
		if err := a.sessions.Revoke(sessionToken); err != nil {
			return OpResult{Message: err.Error()}
		}
	}
	return OpResult{Success: true, Message: "logged out"}
}

// ValidateSession resolves a token to the account identity. Unknown and
// expired tokens are invalid, not errors.
func (a *App) ValidateSession(token string) (SessionResult, error) {
	identity, err := a.sessions.Validate(token)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) || errors.Is(err, core.ErrSessionExpired) {
			return SessionResult{}, nil
		}
		return SessionResult{}, err
	}
	return SessionResult{Valid: true, User: identity}, nil
}

// ChangePassword replaces the password; all existing sessions become invalid.
func (a *App) ChangePassword(currentPassword, newPassword string) OpResult {
	if err := a.vault.ChangePassword(currentPassword, newPassword); err != nil {
		return OpResult{Message: err.Error()}
	}
	return OpResult{Success: true, Message: "password changed"}
}

// CreateManualBackup exports the store to a user-chosen destination.
func (a *App) CreateManualBackup() ManualBackupResult {
	result, err := a.backups.ManualBackup()
	if err != nil {
		if errors.Is(err, core.ErrCancelled) {
			return ManualBackupResult{Cancelled: true, Message: "backup cancelled"}
		}
		return ManualBackupResult{Message: err.Error()}
	}
	return ManualBackupResult{Success: true, Message: "backup created", Path: result.Path}
}

// BackupInfo returns the snapshot directory summary for display.
func (a *App) BackupInfo() (*BackupInfoResult, error) {
	info, err := a.engine.GetInfo()
	if err != nil {
		return nil, err
	}
	return &BackupInfoResult{
		BackupDir:      info.Dir,
		LastBackupTime: info.LastBackupTime,
		BackupCount:    info.Count,
	}, nil
}
