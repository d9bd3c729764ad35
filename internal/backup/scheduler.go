package backup

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"stockbook/internal/core"
)

// DestinationPicker asks the user where a manual export should be written.
// Implementations return core.ErrCancelled when the user dismisses the
// prompt; that outcome is benign and distinct from an I/O failure.
type DestinationPicker interface {
	Pick(suggested string) (string, error)
}

// Result reports the outcome of a snapshot trigger.
type Result struct {
	Created bool
	Path    string
	Reason  string // set when no snapshot was created
}

// Scheduler decides when a snapshot is due. Its three automatic triggers
// (startup check, periodic timer, close hook) overlap deliberately: none of
// them alone covers a user who force-kills the process, never restarts, or
// never leaves the app running long enough for a tick.
type Scheduler struct {
	engine     *Engine
	sched      core.Scheduler
	clock      core.Clock
	picker     DestinationPicker
	staleAfter time.Duration
	logger     core.Logger

	mu       sync.Mutex
	periodic core.TaskHandle
}

// NewScheduler creates a backup scheduler. staleAfter is the startup
// threshold: a newest snapshot older than this triggers a fresh one.
// picker may be nil when no manual-export surface is wired.
func NewScheduler(engine *Engine, sched core.Scheduler, clock core.Clock, picker DestinationPicker, staleAfter time.Duration, logger core.Logger) *Scheduler {
	return &Scheduler{
		engine:     engine,
		sched:      sched,
		clock:      clock,
		picker:     picker,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// CheckOnStartup creates a snapshot when none exists yet (the app never
// runs with zero backups) or when the newest one is older than the startup
// threshold. Otherwise it reports why it skipped.
func (s *Scheduler) CheckOnStartup() (*Result, error) {
	info, err := s.engine.GetInfo()
	if err != nil {
		return nil, fmt.Errorf("checking snapshot directory: %w", err)
	}

	if info.Count == 0 {
		path, err := s.engine.Create()
		if err != nil {
			return nil, fmt.Errorf("creating bootstrap snapshot: %w", err)
		}
		return &Result{Created: true, Path: path}, nil
	}

	age := s.clock.Now().Sub(info.LastBackupTime)
	if age > s.staleAfter {
		path, err := s.engine.Create()
		if err != nil {
			return nil, fmt.Errorf("creating startup snapshot: %w", err)
		}
		return &Result{Created: true, Path: path}, nil
	}

	return &Result{Reason: "skipped, recent backup exists"}, nil
}

// StartPeriodic begins the recurring snapshot timer. Starting while a timer
// is active replaces it, so there is never more than one. A failed tick is
// logged and swallowed; it must not stop future ticks.
func (s *Scheduler) StartPeriodic(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.periodic != nil {
		s.periodic.Stop()
	}
	s.periodic = s.sched.Every(interval, func() {
		if _, err := s.engine.Create(); err != nil {
			s.logger.Error("periodic snapshot failed", "error", err)
		}
	})
}

// StopPeriodic cancels the recurring timer. Safe to call when none is active.
func (s *Scheduler) StopPeriodic() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.periodic != nil {
		s.periodic.Stop()
		s.periodic = nil
	}
}

// OnClose takes the close-triggered snapshot. The caller must wait for it
// to return before tearing down the store handle; a copy interrupted by
// store close or process exit corrupts the snapshot.
func (s *Scheduler) OnClose() (*Result, error) {
	path, err := s.engine.Create()
	if err != nil {
		return nil, fmt.Errorf("creating close snapshot: %w", err)
	}
	return &Result{Created: true, Path: path}, nil
}

// ManualBackup exports the store to a user-chosen destination. A cancelled
// prompt returns core.ErrCancelled unwrapped so callers can suppress it.
func (s *Scheduler) ManualBackup() (*Result, error) {
	if s.picker == nil {
		return nil, fmt.Errorf("no export destination picker configured")
	}

	dest, err := s.picker.Pick(s.engine.SuggestName())
	if err != nil {
		if errors.Is(err, core.ErrCancelled) {
			return nil, core.ErrCancelled
		}
		return nil, fmt.Errorf("choosing export destination: %w", err)
	}

	if err := s.engine.ExportTo(dest); err != nil {
		return nil, err
	}
	return &Result{Created: true, Path: dest}, nil
}
