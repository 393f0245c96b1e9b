package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
	"github.com/Ananth-NQI/farmline-ivr/internal/storage"
)

// SessionSweeper periodically purges expired call sessions.
// Stores enforce expiry on read, so sweeping only reclaims space.
type SessionSweeper struct {
	store    storage.SessionStore
	clock    clockwork.Clock
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSessionSweeper creates a sweeper that runs every interval
func NewSessionSweeper(store storage.SessionStore, clock clockwork.Clock, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SessionSweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionSweeper{
		store:    store,
		clock:    clock,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start launches the sweep loop. Calling Start on a running sweeper does nothing.
func (s *SessionSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("session sweeper already running")
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	ticker := s.clock.NewTicker(s.interval)
	go s.run(ticker)

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the sweep loop and waits for it to exit
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("session sweeper stopped")
}

func (s *SessionSweeper) run(ticker clockwork.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Sweep deletes expired sessions once
func (s *SessionSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("sweep expired sessions", zap.Error(err))
		return
	}
	if n > 0 {
		s.metrics.SessionsSwept.Add(float64(n))
		s.logger.Debug("swept expired sessions", zap.Int64("count", n))
	}
}
