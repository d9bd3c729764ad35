package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"stockbook/internal/app"
	"stockbook/internal/backup"
	"stockbook/internal/config"
	"stockbook/internal/testutil"
)

func newApp(t *testing.T, picker backup.DestinationPicker) *app.App {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	a, err := app.New(cfg, picker)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_AccountLifecycle(t *testing.T) {
	a := newApp(t, nil)

	provisioned, err := a.CheckSetup()
	if err != nil {
		t.Fatalf("CheckSetup() error = %v", err)
	}
	if provisioned {
		t.Fatal("CheckSetup() = true on a fresh store, want false")
	}

	if result := a.Setup("alice", "secret1"); !result.Success {
		t.Fatalf("Setup() failed: %s", result.Message)
	}

	provisioned, err = a.CheckSetup()
	if err != nil {
		t.Fatalf("CheckSetup() error = %v", err)
	}
	if !provisioned {
		t.Fatal("CheckSetup() = false after Setup, want true")
	}

	// Case-insensitive login with a remembered session.
	login := a.Login("ALICE", "secret1", true)
	if !login.Success {
		t.Fatalf("Login() failed: %s", login.Message)
	}
	if login.SessionToken == "" {
		t.Fatal("Login() returned no session token")
	}
	if login.User == nil || login.User.Username != "alice" {
		t.Fatalf("Login() user = %+v, want alice", login.User)
	}

	session, err := a.ValidateSession(login.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if !session.Valid || session.User.Username != "alice" {
		t.Fatalf("ValidateSession() = %+v, want valid alice session", session)
	}

	if bad := a.Login("alice", "wrong", false); bad.Success {
		t.Error("Login() with wrong password succeeded")
	}

	if result := a.ChangePassword("secret1", "newsecret1"); !result.Success {
		t.Fatalf("ChangePassword() failed: %s", result.Message)
	}

	// The old token is invalidated by the password change.
	session, err = a.ValidateSession(login.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession() after password change error = %v", err)
	}
	if session.Valid {
		t.Error("old session still valid after password change")
	}

	if bad := a.Login("alice", "secret1", false); bad.Success {
		t.Error("Login() with the old password succeeded")
	}
	if good := a.Login("alice", "newsecret1", false); !good.Success {
		t.Errorf("Login() with the new password failed: %s", good.Message)
	}
}

func TestApp_Login_WithoutRememberMe(t *testing.T) {
	a := newApp(t, nil)

	if result := a.Setup("alice", "secret1"); !result.Success {
		t.Fatalf("Setup() failed: %s", result.Message)
	}

	login := a.Login("alice", "secret1", false)
	if !login.Success {
		t.Fatalf("Login() failed: %s", login.Message)
	}
	if login.SessionToken != "" {
		t.Errorf("SessionToken = %q, want empty without remember-me", login.SessionToken)
	}
}

func TestApp_Logout(t *testing.T) {
	a := newApp(t, nil)

	if result := a.Setup("alice", "secret1"); !result.Success {
		t.Fatalf("Setup() failed: %s", result.Message)
	}
	login := a.Login("alice", "secret1", true)
	if login.SessionToken == "" {
		t.Fatal("Login() returned no session token")
	}

	if result := a.Logout(login.SessionToken); !result.Success {
		t.Fatalf("Logout() failed: %s", result.Message)
	}
	session, err := a.ValidateSession(login.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if session.Valid {
		t.Error("session still valid after logout")
	}

	// Idempotent, including with no token at all.
	if result := a.Logout(login.SessionToken); !result.Success {
		t.Errorf("second Logout() failed: %s", result.Message)
	}
	if result := a.Logout(""); !result.Success {
		t.Errorf("Logout(\"\") failed: %s", result.Message)
	}
}

func TestApp_ValidateSession_UnknownToken(t *testing.T) {
	a := newApp(t, nil)

	session, err := a.ValidateSession("nope")
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if session.Valid {
		t.Error("unknown token validated")
	}
}

func TestApp_ManualBackup(t *testing.T) {
	t.Run("exports to the picked destination", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "export.db")
		picker := &testutil.StubPicker{Dest: dest}
		a := newApp(t, picker)

		result := a.CreateManualBackup()
		if !result.Success {
			t.Fatalf("CreateManualBackup() failed: %s", result.Message)
		}
		if result.Path != dest {
			t.Errorf("Path = %q, want %q", result.Path, dest)
		}
		if _, err := os.Stat(dest); err != nil {
			t.Errorf("export file missing: %v", err)
		}
	})

	t.Run("cancellation is not a failure", func(t *testing.T) {
		a := newApp(t, &testutil.StubPicker{Cancelled: true})

		result := a.CreateManualBackup()
		if result.Success {
			t.Error("Success = true on cancellation")
		}
		if !result.Cancelled {
			t.Error("Cancelled = false, want true")
		}
	})
}

func TestApp_BackupInfo(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	info, err := a.BackupInfo()
	if err != nil {
		t.Fatalf("BackupInfo() error = %v", err)
	}
	if info.BackupCount != 0 {
		t.Errorf("BackupCount = %d, want 0", info.BackupCount)
	}
	if info.BackupDir != cfg.BackupDir() {
		t.Errorf("BackupDir = %q, want %q", info.BackupDir, cfg.BackupDir())
	}
}

func TestApp_Close_TakesFinalSnapshot(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(cfg.BackupDir())
	if err != nil {
		t.Fatalf("reading backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("snapshot count after close = %d, want 1", len(entries))
	}
}

func TestApp_Inventory(t *testing.T) {
	a := newApp(t, nil)

	repo := a.Inventory()
	item, err := repo.CreateItem("bolts", "B-100", nil, 10, 0.25, "")
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	items, err := repo.ListItems()
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Errorf("ListItems() = %+v, want the created item", items)
	}
}
