package testutil

import (
	"sync"
	"time"

	"stockbook/internal/core"
)

// ManualScheduler records scheduled tasks and runs them only when Tick is
// called, so tests drive recurring work deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn      func()
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Every(_ time.Duration, fn func()) core.TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return &manualHandle{sched: s, task: task}
}

// Tick runs every active task once, as if its interval had elapsed.
func (s *ManualScheduler) Tick() {
	s.mu.Lock()
	var fns []func()
	for _, t := range s.tasks {
		if !t.stopped {
			fns = append(fns, t.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Active returns the number of tasks that have not been stopped.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, t := range s.tasks {
		if !t.stopped {
			count++
		}
	}
	return count
}

type manualHandle struct {
	sched *ManualScheduler
	task  *manualTask
}

func (h *manualHandle) Stop() {
	h.sched.mu.Lock()
	defer h.sched.mu.Unlock()
	h.task.stopped = true
}
