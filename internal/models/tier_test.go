package models

import "testing"

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"BASIC", TierBasic, false},
		{"basic", TierBasic, false},
		{" Vip ", TierVIP, false},
		{"premium", TierVIP, false},
		{"standard", TierBasic, false},
		{"gold", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTier(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTier(t *testing.T) {
	tests := []struct {
		name  string
		tier  string
		alias string
		want  Tier
	}{
		{"tier column", "VIP", "", TierVIP},
		{"alias only", "", "Premium", TierVIP},
		{"tier wins over alias", "BASIC", "vip", TierBasic},
		{"garbage tier falls back to alias", "???", "basic", TierBasic},
		{"nothing recognizable", "", "", TierNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTier(tt.tier, tt.alias); got != tt.want {
				t.Errorf("NormalizeTier(%q, %q) = %q, want %q", tt.tier, tt.alias, got, tt.want)
			}
		})
	}
}

func TestTierRank(t *testing.T) {
	if TierVIP.Rank() <= TierBasic.Rank() {
		t.Error("VIP must outrank BASIC")
	}
	if TierNone.Rank() != 0 {
		t.Error("NONE must have zero rank")
	}
	if TopTier() != TierVIP {
		t.Errorf("expected top tier VIP, got %s", TopTier())
	}
	if TierNone.IsGrantable() {
		t.Error("NONE must not be grantable")
	}
}
