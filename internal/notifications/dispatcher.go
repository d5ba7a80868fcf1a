package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// Sink receives token issuance events.
type Sink interface {
	Name() string
	NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error
}

// Dispatcher fans an event out to every sink concurrently.
type Dispatcher struct {
	sinks  []Sink
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given sinks. Nil sinks are skipped.
func NewDispatcher(logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{logger: logger.With().Str("component", "notifications").Logger()}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Len returns the number of configured sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

// NotifyTokensIssued delivers the event to all sinks and joins their errors.
func (d *Dispatcher) NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error {
	if len(d.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(d.sinks))
	var wg sync.WaitGroup
	for i, sink := range d.sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			if err := sink.NotifyTokensIssued(ctx, event); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				d.logger.Warn().Err(err).Str("sink", sink.Name()).Str("owner_id", event.OwnerID).Msg("notification sink failed")
			}
		}(i, sink)
	}
	wg.Wait()

	return errors.Join(errs...)
}
