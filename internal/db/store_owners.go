package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrOwnerNotFound is returned when an owner row does not exist.
var ErrOwnerNotFound = errors.New("owner not found")

// UpsertOwner records a login, creating the owner on first sight. The stored
// tier is never overwritten by a login.
func (db *DB) UpsertOwner(ctx context.Context, owner *models.Owner) error {
	now := time.Now()
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO owners (owner_id, username, avatar, tier, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (owner_id) DO UPDATE
		SET username = EXCLUDED.username,
		    avatar = EXCLUDED.avatar,
		    last_login_at = EXCLUDED.last_login_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING tier, created_at, updated_at
	`, owner.ID, owner.Username, owner.Avatar, string(models.TierNone), now, now).Scan(
		(*string)(&owner.Tier), &owner.CreatedAt, &owner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert owner: %w", err)
	}
	owner.LastLoginAt = &now
	return nil
}

// GetOwner returns an owner by ID.
func (db *DB) GetOwner(ctx context.Context, ownerID string) (*models.Owner, error) {
	var o models.Owner
	var tier string
	err := db.Pool.QueryRow(ctx, `
		SELECT owner_id, username, avatar, tier, last_login_at, created_at, updated_at
		FROM owners
		WHERE owner_id = $1
	`, ownerID).Scan(&o.ID, &o.Username, &o.Avatar, &tier, &o.LastLoginAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("get owner: %w", err)
	}
	o.Tier = models.NormalizeTier(tier, "")
	return &o, nil
}

// SetOwnerTier updates the headline tier of an owner, creating the row if needed.
func (db *DB) SetOwnerTier(ctx context.Context, ownerID string, tier models.Tier) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO owners (owner_id, tier) VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE
		SET tier = EXCLUDED.tier, updated_at = NOW()
	`, ownerID, string(tier))
	if err != nil {
		return fmt.Errorf("set owner tier: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchOwners returns a page of owners whose ID equals or whose username
// contains the query, most recent login first. Tokens count as active when
// they have not expired at now.
func (db *DB) SearchOwners(ctx context.Context, search models.OwnerSearch, now time.Time) (*models.OwnerPage, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(search.Query)) + "%"

	const filter = `($1 = '' OR o.owner_id = $1 OR LOWER(o.username) LIKE $2)`

	var total int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM owners o WHERE `+filter,
		search.Query, pattern,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count owners: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT o.owner_id, o.username, o.tier, o.last_login_at,
		       COUNT(t.id),
		       COUNT(t.id) FILTER (WHERE t.expires_at IS NULL OR t.expires_at >= $5)
		FROM owners o
		LEFT JOIN tokens t ON t.owner_id = o.owner_id
		WHERE `+filter+`
		GROUP BY o.owner_id
		ORDER BY o.last_login_at DESC NULLS LAST, o.owner_id
		LIMIT $3 OFFSET $4
	`, search.Query, pattern, search.PerPage, search.Offset(), now)
	if err != nil {
		return nil, fmt.Errorf("search owners: %w", err)
	}
	defer rows.Close()

	page := &models.OwnerPage{Total: total, Owners: []models.OwnerSummary{}}
	for rows.Next() {
		var s models.OwnerSummary
		var tier string
		if err := rows.Scan(&s.OwnerID, &s.Username, &tier, &s.LastLoginAt, &s.TokenCount, &s.ActiveTokenCount); err != nil {
			return nil, fmt.Errorf("scan owner summary: %w", err)
		}
		s.Tier = models.NormalizeTier(tier, "")
		page.Owners = append(page.Owners, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return page, nil
}
