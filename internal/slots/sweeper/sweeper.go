package sweeper

import (
	"context"
	"sync"
	"time"

	"testdrive/pkg/logger"
)

type ExpiredHoldSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper removes expired holds in the background. Reads already ignore
// expired holds, so a missed sweep only costs storage.
type Sweeper struct {
	target   ExpiredHoldSweeper
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func New(target ExpiredHoldSweeper, interval, timeout time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		target:   target,
		interval: interval,
		timeout:  timeout,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.log.Info("Hold sweeper started", "interval", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.target.SweepExpired(sweepCtx)
	if err != nil {
		s.log.Warn("Hold sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Debug("Expired holds swept", "removed", removed)
	}
}

// Stop waits for an in-flight sweep to finish. It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}
