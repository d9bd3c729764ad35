package core

import (
	"sync"
	"time"
)

// Scheduler starts recurring tasks. It exists so components that run on a
// timer (periodic backups, session sweeps) can be driven by a fake in tests
// instead of waiting on wall-clock time.
type Scheduler interface {
	// Every runs fn on the given interval until the returned handle is
	// stopped. The first run happens one interval after the call.
	Every(interval time.Duration, fn func()) TaskHandle
}

// TaskHandle cancels a recurring task. Stop is idempotent.
type TaskHandle interface {
	Stop()
}

// TickerScheduler runs tasks on real time.Ticker ticks.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) TaskHandle {
	h := &tickerHandle{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-h.ticker.C:
				fn()
			case <-h.done:
				return
			}
		}
	}()
	return h
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
