package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
)

func TestLoadServerConfig_DefaultEnvironment(t *testing.T) {
	os.Unsetenv("ENV")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENV", "invalid")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q for invalid ENV, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_ValidEnvironments(t *testing.T) {
	tests := []struct {
		env  string
		want Environment
	}{
		{"development", EnvDevelopment},
		{"staging", EnvStaging},
		{"production", EnvProduction},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			cfg := LoadServerConfig()
			if cfg.Environment != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Environment)
			}
		})
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	for _, key := range []string{"CLAIM_COOLDOWN", "HWID_RESET_COOLDOWN", "SIDE_EFFECT_TIMEOUT", "LISTEN_ADDR", "RATE_LIMIT_REQUESTS", "SESSION_SECURE"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV", "development")

	cfg := LoadServerConfig()
	if cfg.ClaimCooldown != 7*24*time.Hour {
		t.Errorf("ClaimCooldown = %v", cfg.ClaimCooldown)
	}
	if cfg.HWIDResetCooldown != 24*time.Hour {
		t.Errorf("HWIDResetCooldown = %v", cfg.HWIDResetCooldown)
	}
	if cfg.SideEffectTimeout != 10*time.Second {
		t.Errorf("SideEffectTimeout = %v", cfg.SideEffectTimeout)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.RateLimitRequests != 100 {
		t.Errorf("RateLimitRequests = %d", cfg.RateLimitRequests)
	}
	if cfg.SessionSecure {
		t.Error("SessionSecure should default to false outside production")
	}
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CLAIM_COOLDOWN", "3d")
	t.Setenv("HWID_RESET_COOLDOWN", "0")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "5s")
	t.Setenv("ADMIN_OWNER_IDS", " 111, ,222 ")
	t.Setenv("ALLOWED_ORIGINS", "https://mods.example.com")
	t.Setenv("SESSION_MAX_AGE", "-5")
	t.Setenv("ROLES_MAX_AGE", "15m")

	cfg := LoadServerConfig()
	if cfg.ClaimCooldown != 72*time.Hour {
		t.Errorf("ClaimCooldown = %v", cfg.ClaimCooldown)
	}
	if cfg.HWIDResetCooldown != 0 {
		t.Errorf("HWIDResetCooldown = %v, want disabled", cfg.HWIDResetCooldown)
	}
	if cfg.SideEffectTimeout != 5*time.Second {
		t.Errorf("SideEffectTimeout = %v", cfg.SideEffectTimeout)
	}
	if len(cfg.AdminOwnerIDs) != 2 || cfg.AdminOwnerIDs[0] != "111" || cfg.AdminOwnerIDs[1] != "222" {
		t.Errorf("AdminOwnerIDs = %v", cfg.AdminOwnerIDs)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SessionMaxAge != 86400 {
		t.Errorf("negative SESSION_MAX_AGE should fall back, got %d", cfg.SessionMaxAge)
	}
	if cfg.RolesMaxAge != 15*time.Minute {
		t.Errorf("RolesMaxAge = %v", cfg.RolesMaxAge)
	}
	if !cfg.SessionSecure || !cfg.IsProduction() {
		t.Error("production should default to secure cookies")
	}
}

func TestLoadServerConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CLAIM_COOLDOWN", "soon")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "-1s")

	cfg := LoadServerConfig()
	if cfg.ClaimCooldown != 7*24*time.Hour {
		t.Errorf("ClaimCooldown = %v", cfg.ClaimCooldown)
	}
	if cfg.SideEffectTimeout != 10*time.Second {
		t.Errorf("SideEffectTimeout = %v", cfg.SideEffectTimeout)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{
		DatabaseURL:         "postgres://localhost/modlicense",
		SessionSecret:       strings.Repeat("s", 32),
		DiscordClientID:     "client",
		DiscordClientSecret: "secret",
		DiscordRedirectURL:  "http://localhost:8080/auth/callback",
		DiscordGuildID:      "guild",
		RateLimitRequests:   100,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	broken := valid
	broken.DatabaseURL = ""
	broken.SessionSecret = "short"
	err := broken.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Errorf("all problems should be reported, got: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MODLICENSE_DOTENV_TEST=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODLICENSE_DOTENV_TEST", "")
	os.Unsetenv("MODLICENSE_DOTENV_TEST")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("MODLICENSE_DOTENV_TEST"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestParseGrantPlan(t *testing.T) {
	grants, err := ParseGrantPlan([]byte(`
grants:
  - tier: basic
    duration_days: 14
  - tier: Premium
    duration_days: 2
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	if grants[0].Tier != models.TierBasic || grants[0].DurationDays != 14 {
		t.Errorf("grant 0 = %+v", grants[0])
	}
	if grants[1].Tier != models.TierVIP {
		t.Errorf("legacy alias should map to VIP, got %q", grants[1].Tier)
	}

	bad := map[string]string{
		"unknown tier": "grants:\n  - tier: gold\n    duration_days: 1\n",
		"zero days":    "grants:\n  - tier: basic\n    duration_days: 0\n",
		"empty plan":   "grants: []\n",
		"not yaml":     "grants: [",
	}
	for name, doc := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseGrantPlan([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadGrantPlan_Default(t *testing.T) {
	grants, err := LoadGrantPlan("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 2 {
		t.Errorf("expected default plan, got %+v", grants)
	}
	if _, err := LoadGrantPlan(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCLIConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := &CLIConfig{DatabaseURL: "postgres://localhost/modlicense", AdminID: "999"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestCLIConfig_MissingFileAndEnv(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("empty config should not validate")
	}

	t.Setenv("DATABASE_URL", "postgres://db/modlicense")
	t.Setenv("MODLICENSE_ADMIN_ID", "42")
	cfg.ApplyEnv()
	if cfg.DatabaseURL != "postgres://db/modlicense" || cfg.AdminID != "42" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}
