package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
)

// TokenStats counts stored tokens per normalized tier along with the number of owners.
func (db *DB) TokenStats(ctx context.Context, now time.Time) (*models.TokenStats, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT tier, alias,
			COUNT(*) FILTER (WHERE expires_at IS NULL OR expires_at >= $1),
			COUNT(*) FILTER (WHERE expires_at < $1)
		FROM tokens
		GROUP BY tier, alias
	`, now)
	if err != nil {
		return nil, fmt.Errorf("count tokens: %w", err)
	}
	defer rows.Close()

	byTier := make(map[models.Tier]*models.TierStats)
	for rows.Next() {
		var tier, alias *string
		var active, expired int
		if err := rows.Scan(&tier, &alias, &active, &expired); err != nil {
			return nil, fmt.Errorf("scan token counts: %w", err)
		}
		t := models.NormalizeTier(deref(tier), deref(alias))
		s, ok := byTier[t]
		if !ok {
			s = &models.TierStats{Tier: t}
			byTier[t] = s
		}
		s.Active += active
		s.Expired += expired
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token counts: %w", err)
	}

	stats := &models.TokenStats{ByTier: make([]models.TierStats, 0, len(byTier))}
	for _, s := range byTier {
		stats.ByTier = append(stats.ByTier, *s)
	}
	sort.Slice(stats.ByTier, func(i, j int) bool {
		return stats.ByTier[i].Tier.Rank() < stats.ByTier[j].Tier.Rank()
	})

	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM owners`).Scan(&stats.Owners); err != nil {
		return nil, fmt.Errorf("count owners: %w", err)
	}
	return stats, nil
}
