package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is how often inventory gauges are refreshed.
const DefaultInterval = time.Minute

// Scheduler refreshes inventory metrics on a fixed interval.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	logger    zerolog.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewScheduler creates a new inventory scheduler.
func NewScheduler(collector *Collector, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		collector: collector,
		interval:  interval,
		logger:    logger.With().Str("component", "metrics_scheduler").Logger(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start collects once immediately, then on every tick.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.collect(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.collect(ctx)
		}
	}
}

func (s *Scheduler) collect(ctx context.Context) {
	collectCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	if _, err := s.collector.Collect(collectCtx); err != nil {
		s.logger.Error().Err(err).Msg("inventory metrics collection failed")
	}
}

// Stop signals the scheduler to stop and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}
