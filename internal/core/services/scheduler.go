package services

import (
	"context"
	"sync"
	"time"

	"github.com/northgate-labs/docsync/internal/core/ports/driving"
	"github.com/northgate-labs/docsync/internal/logger"
)

// DefaultSyncInterval is how often the scheduler kicks off a full sync
// cycle when no interval is configured.
const DefaultSyncInterval = 15 * time.Minute

// Scheduler triggers periodic delta-sync cycles as a safety net for
// missed or delayed change notifications.
type Scheduler struct {
	interval time.Duration
	sync     driving.SyncOrchestrator
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler firing at the given interval.
// Non-positive intervals fall back to the default.
func NewScheduler(interval time.Duration, orch driving.SyncOrchestrator, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		interval: interval,
		sync:     orch,
		log:      log.With("service", "scheduler"),
	}
}

// Start launches the periodic loop. The first cycle fires after one full
// interval, not immediately. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	s.log.Info("scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.sync.SyncAll(ctx); err != nil {
					s.log.Error("scheduled sync cycle finished with errors", "error", err)
				}
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for any in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}
