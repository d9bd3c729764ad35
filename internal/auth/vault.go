package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockbook/internal/core"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// UserID is the fixed id of the single account row. The schema constrains
// the primary key to this value, so at most one account can ever exist.
const UserID int64 = 1

// bcryptCost is fixed; changing it only affects hashes written afterwards.
const bcryptCost = 12

// Identity describes the account to callers. LastLogin is nil until the
// first successful verification.
type Identity struct {
	ID        int64
	Username  string
	CreatedAt time.Time
	LastLogin *time.Time
}

// SessionRevoker invalidates all sessions for a user. The session manager
// implements it; the vault calls it after a password change.
type SessionRevoker interface {
	RevokeAll(userID int64) error
}

// Vault stores and verifies the single account's credentials.
type Vault struct {
	db      *sql.DB
	clock   core.Clock
	logger  core.Logger
	revoker SessionRevoker
}

// NewVault creates a Vault. revoker may be nil when no session manager is
// wired (password changes then leave sessions untouched).
func NewVault(db *sql.DB, clock core.Clock, logger core.Logger, revoker SessionRevoker) *Vault {
	return &Vault{db: db, clock: clock, logger: logger, revoker: revoker}
}

// Provisioned reports whether the account row exists.
func (v *Vault) Provisioned() (bool, error) {
	var count int
	if err := v.db.QueryRow("SELECT COUNT(*) FROM auth_user").Scan(&count); err != nil {
		return false, fmt.Errorf("checking for account: %w", err)
	}
	return count > 0, nil
}

// Provision creates the single account. The fixed-id insert is the
// atomicity guarantee: a racing second Provision violates the primary key
// and reports core.ErrAlreadyProvisioned instead of creating a second
// identity.
func (v *Vault) Provision(username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 {
		return core.ErrInvalidUsername
	}
	if len(password) < 6 {
		return core.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = v.db.Exec(
		"INSERT INTO auth_user (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		UserID, username, string(hash), v.clock.Now(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return core.ErrAlreadyProvisioned
		}
		return fmt.Errorf("creating account: %w", err)
	}

	v.logger.Info("account provisioned", "username", username)
	return nil
}

// Verify checks the credentials and on success records the login time. The
// returned identity carries the last_login value from before this call.
// Wrong username and wrong password are indistinguishable to the caller.
func (v *Vault) Verify(username, password string) (*Identity, error) {
	stored, hash, err := v.load()
	if err != nil {
		return nil, err
	}

	// Run the hash comparison even when the username is wrong so both
	// failure causes take comparable time.
	hashErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if strings.ToLower(strings.TrimSpace(username)) != stored.Username || hashErr != nil {
		return nil, core.ErrInvalidCredentials
	}

	if _, err := v.db.Exec("UPDATE auth_user SET last_login = ? WHERE id = ?", v.clock.Now(), stored.ID); err != nil {
		return nil, fmt.Errorf("recording login time: %w", err)
	}

	v.logger.Info("credentials verified", "username", stored.Username)
	return stored, nil
}

// ChangePassword replaces the password hash and invalidates every existing
// session for the account.
func (v *Vault) ChangePassword(currentPassword, newPassword string) error {
	stored, hash, err := v.load()
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)); err != nil {
		return core.ErrIncorrectPassword
	}
	if len(newPassword) < 6 {
		return core.ErrWeakPassword
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := v.db.Exec("UPDATE auth_user SET password_hash = ? WHERE id = ?", string(newHash), stored.ID); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	if v.revoker != nil {
		if err := v.revoker.RevokeAll(stored.ID); err != nil {
			return fmt.Errorf("revoking sessions after password change: %w", err)
		}
	}

	v.logger.Info("password changed", "username", stored.Username)
	return nil
}

// load reads the account row, translating a missing row to core.ErrNoAccount.
func (v *Vault) load() (*Identity, string, error) {
	var (
		id        Identity
		hash      string
		lastLogin sql.NullTime
	)
	err := v.db.QueryRow(
		"SELECT id, username, password_hash, created_at, last_login FROM auth_user WHERE id = ?",
		UserID,
	).Scan(&id.ID, &id.Username, &hash, &id.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", core.ErrNoAccount
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading account: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		id.LastLogin = &t
	}
	return &id, hash, nil
}
