package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the persistence operations the collector needs.
type Store interface {
	TokenStats(ctx context.Context, now time.Time) (*models.TokenStats, error)
}

// InventorySink receives inventory snapshots.
type InventorySink interface {
	SetInventory(stats *models.TokenStats)
}

// Collector snapshots token and owner counts into the inventory gauges.
type Collector struct {
	store  Store
	sink   InventorySink
	logger zerolog.Logger
	now    func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(store Store, sink InventorySink, logger zerolog.Logger) *Collector {
	return &Collector{
		store:  store,
		sink:   sink,
		logger: logger.With().Str("component", "metrics_collector").Logger(),
		now:    time.Now,
	}
}

// Collect reads the current inventory and publishes it.
func (c *Collector) Collect(ctx context.Context) (*models.TokenStats, error) {
	stats, err := c.store.TokenStats(ctx, c.now())
	if err != nil {
		return nil, fmt.Errorf("get token stats: %w", err)
	}

	c.sink.SetInventory(stats)

	c.logger.Debug().
		Int("owners", stats.Owners).
		Int("tiers", len(stats.ByTier)).
		Msg("collected inventory metrics")

	return stats, nil
}
