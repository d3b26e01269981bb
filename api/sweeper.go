/*
sweeper.go - Automated points expiration sweeper

PURPOSE:
  Periodically runs the loyalty engine's expiration sweep so overdue
  earned points are removed without manual intervention.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Delegates the actual work to Engine.ProcessExpiring, which handles
    per-entry transactions and skip-on-insufficient-balance
  - Failures are logged; the next tick retries naturally

CONFIGURATION:
  - Interval: How often to sweep (default: 24 hours)
  - Enabled:  Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewSweeper(engine)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: RunExpiration endpoint (manual sweep)
  - loyalty/engine.go: ProcessExpiring
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kaely/pos-customer/loyalty"
)

// Sweeper runs the points expiration sweep on a schedule.
type Sweeper struct {
	Engine   *loyalty.Engine
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper creates a new sweeper with the default daily interval.
func NewSweeper(engine *loyalty.Engine) *Sweeper {
	return &Sweeper{
		Engine:   engine,
		Interval: 24 * time.Hour,
		Enabled:  true,
		stop:     make(chan bool),
	}
}

// Start begins the sweeper.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Sweeper] Started with interval: %v", s.Interval)
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx := context.Background()

	expired, err := s.Engine.ProcessExpiring(ctx)
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[Sweeper] Expired %d points", expired)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *Sweeper) RunNow() {
	s.sweep()
}
