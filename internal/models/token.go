package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// unlimitedHorizon is how far in the future an expiry must lie to be shown as unlimited.
const unlimitedHorizon = 50 * 365 * 24 * time.Hour

// Days converts a token validity in days to a fixed number of 24 hour periods.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// TokenRecord is a bearer access token owned by a Discord account.
type TokenRecord struct {
	ID              uuid.UUID  `json:"id"`
	Token           string     `json:"token"`
	OwnerID         string     `json:"owner_id"`
	Tier            Tier       `json:"tier"`
	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	HardwareID      *string    `json:"hardware_id,omitempty"`
	GrantedByAdmin  *string    `json:"granted_by_admin,omitempty"`
	DurationDays    int        `json:"duration_days"`
	LastHWIDResetAt *time.Time `json:"last_hwid_reset_at,omitempty"`
}

// NewTokenRecord creates a token issued at issuedAt. A zero durationDays yields a
// token that never expires.
func NewTokenRecord(ownerID, token string, tier Tier, durationDays int, issuedAt time.Time) *TokenRecord {
	rec := &TokenRecord{
		ID:           uuid.New(),
		Token:        token,
		OwnerID:      ownerID,
		Tier:         tier,
		IssuedAt:     issuedAt,
		DurationDays: durationDays,
	}
	if durationDays > 0 {
		expires := issuedAt.Add(Days(durationDays))
		rec.ExpiresAt = &expires
	}
	return rec
}

// IsExpired reports whether the token expired strictly before now.
func (t *TokenRecord) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// IsUnlimited reports whether the token has no practical expiry.
func (t *TokenRecord) IsUnlimited(now time.Time) bool {
	return t.ExpiresAt == nil || t.ExpiresAt.Sub(now) > unlimitedHorizon
}

// HWIDBound reports whether a client device is bound to the token.
func (t *TokenRecord) HWIDBound() bool {
	return t.HardwareID != nil && *t.HardwareID != ""
}

// DurationLabel renders a validity window for display, e.g. "7 Days".
func DurationLabel(days int) string {
	switch {
	case days <= 0:
		return "Unlimited"
	case days == 1:
		return "1 Day"
	default:
		return fmt.Sprintf("%d Days", days)
	}
}

// TokenView is the projection of a token returned to API callers.
type TokenView struct {
	Token          string     `json:"token"`
	Tier           Tier       `json:"tier"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	DurationDays   int        `json:"duration_days"`
	DurationLabel  string     `json:"duration_label"`
	HardwareID     *string    `json:"hardware_id"`
	HWIDBound      bool       `json:"hwid_bound"`
	GrantedByAdmin *string    `json:"granted_by_admin,omitempty"`
	IsExpired      bool       `json:"is_expired"`
	IsUnlimited    bool       `json:"is_unlimited"`
}

// View derives the API projection of the token as seen at now.
func (t *TokenRecord) View(now time.Time) TokenView {
	return TokenView{
		Token:          t.Token,
		Tier:           t.Tier,
		IssuedAt:       t.IssuedAt,
		ExpiresAt:      t.ExpiresAt,
		DurationDays:   t.DurationDays,
		DurationLabel:  DurationLabel(t.DurationDays),
		HardwareID:     t.HardwareID,
		HWIDBound:      t.HWIDBound(),
		GrantedByAdmin: t.GrantedByAdmin,
		IsExpired:      t.IsExpired(now),
		IsUnlimited:    t.IsUnlimited(now),
	}
}

// CooldownRecord tracks the last self-service claim of an owner.
type CooldownRecord struct {
	OwnerID     string     `json:"owner_id"`
	LastClaimAt *time.Time `json:"last_claim_at"`
}

// GrantTokenRequest is the body of an admin grant. Zero days grants an unlimited token.
type GrantTokenRequest struct {
	Tier         string `json:"tier" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"min=0,max=3650"`
}

// ExtendTokenRequest is the body of an admin extension.
type ExtendTokenRequest struct {
	Days int `json:"days" binding:"required,min=1,max=3650"`
}

// TierStats counts the stored tokens of one tier.
type TierStats struct {
	Tier    Tier `json:"tier"`
	Active  int  `json:"active"`
	Expired int  `json:"expired"`
}

// TokenStats is an inventory snapshot of tokens and owners.
type TokenStats struct {
	ByTier []TierStats `json:"by_tier"`
	Owners int         `json:"owners"`
}
