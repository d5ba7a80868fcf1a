// Package config provides configuration management for modlicense.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string
	LogLevel    string
	DatabaseURL string

	SessionSecret string
	SessionMaxAge int           // session lifetime in seconds (default: 86400)
	SessionSecure bool          // Secure cookie attribute (default: true in production)
	RolesMaxAge   time.Duration // how long guild roles read at login are trusted (default: 1h)

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string
	DiscordGuildID      string
	PostLoginRedirect   string

	ClaimRoleID   string
	AdminRoleID   string
	AdminOwnerIDs []string

	ClaimCooldown     time.Duration
	HWIDResetCooldown time.Duration
	SideEffectTimeout time.Duration
	GrantsFile        string

	DiscordWebhookURL string
	WebhookURL        string
	WebhookSecret     string
	AMQPURL           string

	RedisURL          string
	RateLimitRequests int64
	RateLimitPeriod   string
	AllowedOrigins    []string

	HTTPProxyURL    string
	MetricsInterval time.Duration
}

// IsProduction reports whether the server runs in production.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate checks that the settings needed to serve requests are present.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.DiscordClientID == "" || c.DiscordClientSecret == "" {
		errs = append(errs, errors.New("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET are required"))
	}
	if c.DiscordRedirectURL == "" {
		errs = append(errs, errors.New("DISCORD_REDIRECT_URL is required"))
	}
	if c.DiscordGuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID is required"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests))
	}
	return errors.Join(errs...)
}

// LoadDotEnv loads variables from the given .env files without overriding
// the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge < 0 {
		sessionMaxAge = 86400
	}

	claimCooldown := getEnvDuration("CLAIM_COOLDOWN", 7*24*time.Hour)
	if claimCooldown < 0 {
		claimCooldown = 7 * 24 * time.Hour
	}

	hwidCooldown := getEnvDuration("HWID_RESET_COOLDOWN", 24*time.Hour)
	if hwidCooldown < 0 {
		hwidCooldown = 24 * time.Hour
	}

	sideEffectTimeout := getEnvDuration("SIDE_EFFECT_TIMEOUT", 10*time.Second)
	if sideEffectTimeout <= 0 {
		sideEffectTimeout = 10 * time.Second
	}

	return ServerConfig{
		Environment: env,
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: sessionMaxAge,
		RolesMaxAge:   getEnvDuration("ROLES_MAX_AGE", time.Hour),
		SessionSecure: getEnvBool("SESSION_SECURE", env == EnvProduction),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURL:  os.Getenv("DISCORD_REDIRECT_URL"),
		DiscordGuildID:      os.Getenv("DISCORD_GUILD_ID"),
		PostLoginRedirect:   getEnv("POST_LOGIN_REDIRECT", "/"),

		ClaimRoleID:   strings.TrimSpace(os.Getenv("CLAIM_ROLE_ID")),
		AdminRoleID:   strings.TrimSpace(os.Getenv("ADMIN_ROLE_ID")),
		AdminOwnerIDs: getEnvList("ADMIN_OWNER_IDS"),

		ClaimCooldown:     claimCooldown,
		HWIDResetCooldown: hwidCooldown,
		SideEffectTimeout: sideEffectTimeout,
		GrantsFile:        os.Getenv("GRANTS_FILE"),

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		AMQPURL:           os.Getenv("AMQP_URL"),

		RedisURL:          os.Getenv("REDIS_URL"),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 100)),
		RateLimitPeriod:   getEnv("RATE_LIMIT_PERIOD", "1m"),
		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS"),

		HTTPProxyURL:    os.Getenv("HTTP_PROXY_URL"),
		MetricsInterval: getEnvDuration("METRICS_INTERVAL", time.Minute),
	}
}

// getEnv reads a string from an environment variable, returning the default if unset.
func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a duration such as "168h" or "7d" from an environment
// variable, returning the default if unset or invalid. "0" disables.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	d, err := parseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// parseDuration extends time.ParseDuration with a whole-day "d" suffix.
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// getEnvList reads a comma-separated list, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
