/*
scheduler.go - Automated annual vacation allocation

PURPOSE:
  Periodically runs the annual vacation allocation batch so every active
  employee receives the yearly entitlement once the vacation year starts on
  April 1, without an operator triggering it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check runs the batch for the vacation year containing today
  - The batch is idempotent per (employee, vacation year), so repeated
    checks only create allocations for employees added since the last run

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAllocationScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AllocateAnnualVacation endpoint (manual run)
  - vacation/allocate.go: Allocator
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AllocationScheduler handles automated annual vacation allocation.
type AllocationScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAllocationScheduler creates a new scheduler.
func NewAllocationScheduler(handler *Handler) *AllocationScheduler {
	return &AllocationScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (s *AllocationScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.Handler.Logger
	if !s.Enabled {
		logger.Info("allocation scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	logger.Info("allocation scheduler started", slog.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *AllocationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Handler.Logger.Info("allocation scheduler stopped")
}

func (s *AllocationScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunOnce(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunOnce runs the batch for the vacation year containing today. Failures
// are logged; the next tick retries.
func (s *AllocationScheduler) RunOnce(ctx context.Context) {
	h := s.Handler
	run, err := h.Allocator.AllocateAnnualVacation(ctx, h.today())
	if err != nil {
		h.Logger.ErrorContext(ctx, "scheduled vacation allocation failed", slog.String("error", err.Error()))
		return
	}
	VacationAllocations.Add(float64(len(run.Created)))
}
