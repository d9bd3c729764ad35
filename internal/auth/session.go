package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockbook/internal/core"
)

// Sessions issues and validates the opaque tokens that let a returning user
// skip the password prompt. Expired rows are removed lazily on validation
// and by a recurring sweep; both paths tolerate the row already being gone.
type Sessions struct {
	db     *sql.DB
	sched  core.Scheduler
	clock  core.Clock
	tokens core.TokenGenerator
	logger core.Logger

	mu      sync.Mutex
	sweeper core.TaskHandle
}

// NewSessions creates a session manager.
func NewSessions(db *sql.DB, sched core.Scheduler, clock core.Clock, tokens core.TokenGenerator, logger core.Logger) *Sessions {
	return &Sessions{db: db, sched: sched, clock: clock, tokens: tokens, logger: logger}
}

// Issue creates a new session for the user, valid for expiryDays. Any prior
// sessions for the user are deleted first, so at most one remembered
// session is live at a time.
func (s *Sessions) Issue(userID int64, expiryDays int) (string, error) {
	token, err := s.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("issuing session: %w", err)
	}

	now := s.clock.Now()
	expiresAt := now.AddDate(0, 0, expiryDays)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM auth_sessions WHERE user_id = ?", userID); err != nil {
		return "", fmt.Errorf("removing prior sessions: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		token, userID, now, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing session: %w", err)
	}

	s.logger.Debug("session issued", "user_id", userID, "expires_at", expiresAt)
	return token, nil
}

// Validate returns the identity behind a token. An expired token reports
// core.ErrSessionExpired and deletes the row, so a second call on the same
// token reports core.ErrSessionNotFound rather than an internal error.
func (s *Sessions) Validate(token string) (*Identity, error) {
	var (
		expiresAt time.Time
		id        Identity
		lastLogin sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT s.expires_at, u.id, u.username, u.created_at, u.last_login
		 FROM auth_sessions s JOIN auth_user u ON u.id = s.user_id
		 WHERE s.id = ?`,
		token,
	).Scan(&expiresAt, &id.ID, &id.Username, &id.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if !expiresAt.After(s.clock.Now()) {
		if err := s.Revoke(token); err != nil {
			s.logger.Warn("removing expired session failed", "error", err)
		}
		return nil, core.ErrSessionExpired
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		id.LastLogin = &t
	}
	return &id, nil
}

// Revoke deletes the session if present. Revoking an unknown token is a no-op.
func (s *Sessions) Revoke(token string) error {
	if _, err := s.db.Exec("DELETE FROM auth_sessions WHERE id = ?", token); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// RevokeAll deletes every session for the user.
func (s *Sessions) RevokeAll(userID int64) error {
	if _, err := s.db.Exec("DELETE FROM auth_sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}
	return nil
}

// SweepExpired deletes all sessions whose expiry has passed and returns how
// many were removed.
func (s *Sessions) SweepExpired() (int64, error) {
	res, err := s.db.Exec("DELETE FROM auth_sessions WHERE expires_at <= ?", s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting swept sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired sessions swept", "count", count)
	}
	return count, nil
}

// StartSweeper begins the recurring expired-session sweep. Starting while a
// sweeper is active replaces it; there is never more than one.
func (s *Sessions) StartSweeper(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.sweeper = s.sched.Every(interval, func() {
		if _, err := s.SweepExpired(); err != nil {
			s.logger.Error("session sweep failed", "error", err)
		}
	})
}

// StopSweeper cancels the recurring sweep. Safe to call when none is active.
func (s *Sessions) StopSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweeper != nil {
		s.sweeper.Stop()
		s.sweeper = nil
	}
}

// Compile-time check that Sessions satisfies the vault's revoker dependency
var _ SessionRevoker = (*Sessions)(nil)
