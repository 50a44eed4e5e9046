/*
sweeper.go - Periodic purge of expired conversation state

PURPOSE:
  Conversation state older than the dialog timeout is discarded lazily on
  read, but subjects that never write again would leave rows behind.
  The sweeper deletes them on a fixed interval.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Sweeps once immediately on start, then on every tick
  - Only backends without native expiry need it (sqlite, mongo);
    redis keys carry their own TTL

USAGE:
  sweeper := NewSweeper(store, 10*time.Minute, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - conversation/state.go: TTL
  - store/sqlite/state.go, store/mongostate: PurgeExpired
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/metrics"
)

// Purger deletes conversation states last written before cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper handles periodic state cleanup.
type Sweeper struct {
	Purger   Purger
	Interval time.Duration
	Now      func() time.Time

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper creates a new sweeper.
func NewSweeper(p Purger, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		Purger:   p,
		Interval: interval,
		Now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins sweeping in the background.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	s.logger.Info("state sweeper started", zap.Duration("interval", s.Interval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("state sweeper stopped")
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow performs one sweep and returns the number of states removed.
func (s *Sweeper) RunNow(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := s.Now().Add(-conversation.TTL)
	n, err := s.Purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("purge expired states", zap.Error(err))
		return 0
	}
	if n > 0 {
		metrics.StatesPurgedTotal.Add(float64(n))
		s.logger.Info("purged expired states", zap.Int64("count", n))
	}
	return n
}
