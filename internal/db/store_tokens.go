package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/jackc/pgx/v5"
)

const tokenTokenKey = "tokens_token_key"

const tokenColumns = `id, token, owner_id, tier, alias, issued_at, expires_at,
	hardware_id, granted_by_admin, duration_days, last_hwid_reset_at`

var _ license.Store = (*DB)(nil)

// scanToken reads one tokens row, reconciling the tier and legacy alias columns.
func scanToken(row pgx.Row) (*models.TokenRecord, error) {
	var rec models.TokenRecord
	var tier, alias *string
	err := row.Scan(
		&rec.ID, &rec.Token, &rec.OwnerID, &tier, &alias, &rec.IssuedAt, &rec.ExpiresAt,
		&rec.HardwareID, &rec.GrantedByAdmin, &rec.DurationDays, &rec.LastHWIDResetAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Tier = models.NormalizeTier(deref(tier), deref(alias))
	return &rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func queueToken(batch *pgx.Batch, rec *models.TokenRecord) {
	batch.Queue(`
		INSERT INTO tokens (id, token, owner_id, tier, issued_at, expires_at,
			hardware_id, granted_by_admin, duration_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.Token, rec.OwnerID, string(rec.Tier), rec.IssuedAt, rec.ExpiresAt,
		rec.HardwareID, rec.GrantedByAdmin, rec.DurationDays)
}

func ensureOwner(ctx context.Context, tx pgx.Tx, ownerID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO owners (owner_id) VALUES ($1)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID)
	if err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}
	return nil
}

func sendTokens(ctx context.Context, tx pgx.Tx, tokens []*models.TokenRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range tokens {
		queueToken(batch, rec)
	}
	br := tx.SendBatch(ctx, batch)
	for range tokens {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err, tokenTokenKey) {
				return license.ErrDuplicateToken
			}
			return fmt.Errorf("insert token: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close token batch: %w", err)
	}
	return nil
}

// GetCooldown returns the owner's claim cooldown record, or nil if none exists.
func (db *DB) GetCooldown(ctx context.Context, ownerID string) (*models.CooldownRecord, error) {
	var rec models.CooldownRecord
	err := db.Pool.QueryRow(ctx, `
		SELECT owner_id, last_claim_at FROM claim_cooldowns
		WHERE owner_id = $1
	`, ownerID).Scan(&rec.OwnerID, &rec.LastClaimAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cooldown: %w", err)
	}
	return &rec, nil
}

// ClaimTokens writes the claim time and the claimed tokens in one transaction.
// The cooldown upsert only succeeds when no claim newer than cooldown exists,
// so concurrent claims of one owner serialize on the claim_cooldowns row.
func (db *DB) ClaimTokens(ctx context.Context, ownerID string, claimedAt time.Time, cooldown time.Duration, tokens []*models.TokenRecord) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := ensureOwner(ctx, tx, ownerID); err != nil {
			return err
		}

		var recorded time.Time
		err := tx.QueryRow(ctx, `
			INSERT INTO claim_cooldowns (owner_id, last_claim_at)
			VALUES ($1, $2)
			ON CONFLICT (owner_id) DO UPDATE
			SET last_claim_at = EXCLUDED.last_claim_at
			WHERE claim_cooldowns.last_claim_at IS NULL
			   OR claim_cooldowns.last_claim_at <= EXCLUDED.last_claim_at - ($3::bigint * interval '1 microsecond')
			RETURNING last_claim_at
		`, ownerID, claimedAt, cooldown.Microseconds()).Scan(&recorded)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return license.ErrCooldownActive
			}
			return fmt.Errorf("record claim cooldown: %w", err)
		}

		return sendTokens(ctx, tx, tokens)
	})
}

// CreateToken inserts a single token.
func (db *DB) CreateToken(ctx context.Context, rec *models.TokenRecord) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := ensureOwner(ctx, tx, rec.OwnerID); err != nil {
			return err
		}
		return sendTokens(ctx, tx, []*models.TokenRecord{rec})
	})
}

// ListTokensByOwner returns all tokens of an owner, newest first.
func (db *DB) ListTokensByOwner(ctx context.Context, ownerID string) ([]*models.TokenRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE owner_id = $1
		ORDER BY issued_at DESC, token
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

// GetToken returns a token of ownerID.
func (db *DB) GetToken(ctx context.Context, ownerID, token string) (*models.TokenRecord, error) {
	rec, err := scanToken(db.Pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE owner_id = $1 AND token = $2
	`, ownerID, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return rec, nil
}

// ClearHardwareID unbinds a token of ownerID and stamps the reset time.
// It returns ErrTokenNotFound when ownerID holds no such token.
func (db *DB) ClearHardwareID(ctx context.Context, ownerID, token string, resetAt time.Time) (bool, error) {
	var found, cleared bool
	err := db.Pool.QueryRow(ctx, `
		WITH target AS (
			SELECT id, hardware_id FROM tokens
			WHERE owner_id = $1 AND token = $2
			FOR UPDATE
		), cleared AS (
			UPDATE tokens t
			SET hardware_id = NULL, last_hwid_reset_at = $3
			FROM target
			WHERE t.id = target.id AND target.hardware_id IS NOT NULL
			RETURNING t.id
		)
		SELECT EXISTS (SELECT 1 FROM target), EXISTS (SELECT 1 FROM cleared)
	`, ownerID, token, resetAt).Scan(&found, &cleared)
	if err != nil {
		return false, fmt.Errorf("clear hardware id: %w", err)
	}
	if !found {
		return false, license.ErrTokenNotFound
	}
	return cleared, nil
}

// ClearOwnerHardwareIDs unbinds every token of ownerID.
func (db *DB) ClearOwnerHardwareIDs(ctx context.Context, ownerID string) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE tokens SET hardware_id = NULL
		WHERE owner_id = $1 AND hardware_id IS NOT NULL
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear owner hardware ids: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExtendToken adds days to the current expiry. Tokens without an expiry are unchanged.
func (db *DB) ExtendToken(ctx context.Context, ownerID, token string, days int) (*models.TokenRecord, error) {
	rec, err := scanToken(db.Pool.QueryRow(ctx, `
		UPDATE tokens
		SET expires_at = CASE WHEN expires_at IS NULL THEN NULL
		                      ELSE expires_at + make_interval(hours => $3::int * 24) END,
		    duration_days = CASE WHEN expires_at IS NULL THEN duration_days
		                         ELSE duration_days + $3::int END
		WHERE owner_id = $1 AND token = $2
		RETURNING `+tokenColumns,
		ownerID, token, days))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrTokenNotFound
		}
		return nil, fmt.Errorf("extend token: %w", err)
	}
	return rec, nil
}

// DeleteToken removes a token of ownerID.
func (db *DB) DeleteToken(ctx context.Context, ownerID, token string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM tokens WHERE owner_id = $1 AND token = $2
	`, ownerID, token)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResetCooldown clears the last claim time of ownerID.
func (db *DB) ResetCooldown(ctx context.Context, ownerID string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE claim_cooldowns SET last_claim_at = NULL
		WHERE owner_id = $1 AND last_claim_at IS NOT NULL
	`, ownerID)
	if err != nil {
		return false, fmt.Errorf("reset cooldown: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
