package license

import (
	"context"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
)

// Store is the persistence contract of the licensing service.
type Store interface {
	// GetCooldown returns nil when the owner has never claimed.
	GetCooldown(ctx context.Context, ownerID string) (*models.CooldownRecord, error)
	// ClaimTokens records the claim time and inserts tokens in one transaction.
	// It returns ErrCooldownActive when a claim newer than cooldown already exists
	// and ErrDuplicateToken on a token collision.
	ClaimTokens(ctx context.Context, ownerID string, claimedAt time.Time, cooldown time.Duration, tokens []*models.TokenRecord) error
	// CreateToken inserts a single token, returning ErrDuplicateToken on collision.
	CreateToken(ctx context.Context, token *models.TokenRecord) error
	// ListTokensByOwner returns the owner's tokens, newest first.
	ListTokensByOwner(ctx context.Context, ownerID string) ([]*models.TokenRecord, error)
	// GetToken returns ErrTokenNotFound unless the token belongs to ownerID.
	GetToken(ctx context.Context, ownerID, token string) (*models.TokenRecord, error)
	// ClearHardwareID unbinds one token and reports whether a binding was removed.
	// It returns ErrTokenNotFound unless the token belongs to ownerID.
	ClearHardwareID(ctx context.Context, ownerID, token string, resetAt time.Time) (bool, error)
	// ClearOwnerHardwareIDs unbinds every token of the owner and returns how many changed.
	ClearOwnerHardwareIDs(ctx context.Context, ownerID string) (int64, error)
	// ExtendToken pushes expires_at forward by days, returning ErrTokenNotFound if absent.
	ExtendToken(ctx context.Context, ownerID, token string, days int) (*models.TokenRecord, error)
	// DeleteToken removes a token and reports whether a row existed.
	DeleteToken(ctx context.Context, ownerID, token string) (bool, error)
	// ResetCooldown clears the owner's cooldown record and reports whether one existed.
	ResetCooldown(ctx context.Context, ownerID string) (bool, error)
	// SetOwnerTier updates the owner's headline tier.
	SetOwnerTier(ctx context.Context, ownerID string, tier models.Tier) error
	// SearchOwners returns a filtered page of owner summaries.
	SearchOwners(ctx context.Context, search models.OwnerSearch, now time.Time) (*models.OwnerPage, error)
}

// Notifier receives events after tokens are durably issued.
type Notifier interface {
	NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error
}

// Recorder receives service outcomes for metrics.
type Recorder interface {
	RecordClaim(outcome string)
	RecordTokensIssued(tier models.Tier, source models.IssueSource, n int)
	RecordAdminAction(action string)
	RecordSideEffectFailure(effect string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyTokensIssued(context.Context, models.TokensIssuedEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordClaim(string)                                     {}
func (nopRecorder) RecordTokensIssued(models.Tier, models.IssueSource, int) {}
func (nopRecorder) RecordAdminAction(string)                               {}
func (nopRecorder) RecordSideEffectFailure(string)                         {}
