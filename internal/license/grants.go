package license

import (
	"errors"
	"fmt"

	"github.com/MacJediWizard/modlicense/internal/models"
)

// Grant is one token issued by every self-service claim.
type Grant struct {
	Tier         models.Tier `yaml:"tier" json:"tier"`
	DurationDays int         `yaml:"duration_days" json:"duration_days"`
}

// DefaultGrants returns the claim plan: a 7 day BASIC token and a 1 day VIP token.
func DefaultGrants() []Grant {
	return []Grant{
		{Tier: models.TierBasic, DurationDays: 7},
		{Tier: models.TierVIP, DurationDays: 1},
	}
}

// ValidateGrants checks a claim plan.
func ValidateGrants(grants []Grant) error {
	if len(grants) == 0 {
		return errors.New("at least one grant is required")
	}
	for i, g := range grants {
		if !g.Tier.IsGrantable() {
			return fmt.Errorf("grant %d: tier %q is not grantable", i, g.Tier)
		}
		if g.DurationDays < 1 {
			return fmt.Errorf("grant %d: duration_days must be at least 1", i)
		}
	}
	return nil
}

// includesTopTier reports whether a set of granted tiers contains the top tier.
func includesTopTier(records []*models.TokenRecord) bool {
	for _, r := range records {
		if r.Tier == models.TopTier() {
			return true
		}
	}
	return false
}
