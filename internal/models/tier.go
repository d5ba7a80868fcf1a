package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Tier is the entitlement level carried by a token.
type Tier string

const (
	// TierNone is the headline tier of an owner without any claimed entitlement.
	TierNone Tier = "NONE"
	// TierBasic is the entry level, issued on every claim.
	TierBasic Tier = "BASIC"
	// TierVIP is the top level.
	TierVIP Tier = "VIP"
)

// GrantableTiers returns the tiers a token can be issued with, lowest first.
func GrantableTiers() []Tier {
	return []Tier{TierBasic, TierVIP}
}

// IsGrantable reports whether t can be carried by a token.
func (t Tier) IsGrantable() bool {
	for _, g := range GrantableTiers() {
		if t == g {
			return true
		}
	}
	return false
}

// Rank orders tiers so the highest entitlement wins.
func (t Tier) Rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierVIP:
		return 2
	default:
		return 0
	}
}

// TopTier returns the highest grantable tier.
func TopTier() Tier {
	return TierVIP
}

// legacyTierAliases maps case-folded historical tier names onto canonical tiers.
// Older rows stored the tier in an "alias" column with free-form casing.
var legacyTierAliases = map[string]Tier{
	"basic":    TierBasic,
	"standard": TierBasic,
	"free":     TierBasic,
	"vip":      TierVIP,
	"premium":  TierVIP,
}

// ParseTier parses a tier name supplied by an operator. Legacy aliases are accepted.
func ParseTier(s string) (Tier, error) {
	key := cases.Fold().String(strings.TrimSpace(s))
	if tier, ok := legacyTierAliases[key]; ok {
		return tier, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// NormalizeTier reconciles the current tier column with the legacy alias column.
// The tier column wins when it holds a recognizable value.
func NormalizeTier(tier, alias string) Tier {
	if t, err := ParseTier(tier); err == nil {
		return t
	}
	if t, err := ParseTier(alias); err == nil {
		return t
	}
	return TierNone
}
