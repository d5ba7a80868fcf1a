// Package main is the entrypoint for the modlicense server.
//
// @title           modlicense API
// @version         1.0
// @description     Discord-authenticated token licensing: claim, list and unbind tokens, and administer owners.
//
// @contact.name   modlicense maintainers
// @contact.url    https://github.com/MacJediWizard/modlicense
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name modlicense_session
// @description Session cookie set by the Discord login
//
// @tag.name Tokens
// @tag.description Self-service token claim, listing and hardware ID reset
// @tag.name Admin
// @tag.description Owner search and token administration
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MacJediWizard/modlicense/internal/api"
	"github.com/MacJediWizard/modlicense/internal/auth"
	"github.com/MacJediWizard/modlicense/internal/config"
	"github.com/MacJediWizard/modlicense/internal/db"
	"github.com/MacJediWizard/modlicense/internal/httpclient"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/metrics"
	"github.com/MacJediWizard/modlicense/internal/notifications"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		l := zerolog.New(os.Stderr)
		l.Error().Err(err).Msg("Failed to load .env")
		return 1
	}
	cfg := config.LoadServerConfig()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Str("environment", string(cfg.Environment)).
		Msg("Starting modlicense server")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Outbound HTTP for Discord and webhooks
	proxy, err := httpclient.ParseProxyURL(cfg.HTTPProxyURL, "")
	if err != nil {
		logger.Error().Err(err).Msg("Invalid HTTP_PROXY_URL")
		return 1
	}
	if proxy.HasProxy() {
		logger.Info().Str("proxy", httpclient.MaskProxyURL(cfg.HTTPProxyURL)).Msg("Using outbound proxy")
	}
	discordClient, err := httpclient.New(httpclient.Options{Timeout: 10 * time.Second, Proxy: proxy})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build Discord HTTP client")
		return 1
	}
	webhookClient, err := httpclient.New(httpclient.Options{Proxy: proxy, BlockPrivate: cfg.IsProduction()})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build webhook HTTP client")
		return 1
	}

	// Connect to database
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if _, err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	grants, err := config.LoadGrantPlan(cfg.GrantsFile)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load grant plan")
		return 1
	}

	// Notification sinks
	dispatcher, err := newDispatcher(cfg, webhookClient, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to configure notifications")
		return 1
	}
	logger.Info().Int("sinks", dispatcher.Len()).Msg("Notifications configured")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := metrics.NewPrometheusMetrics(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}
	inventory := metrics.NewScheduler(metrics.NewCollector(database, promMetrics, logger), cfg.MetricsInterval, logger)
	inventory.Start(ctx)
	defer inventory.Stop()

	// Licensing service
	licCfg := license.Config{
		Grants:            grants,
		ClaimRoleID:       cfg.ClaimRoleID,
		ClaimCooldown:     cfg.ClaimCooldown,
		HWIDResetCooldown: cfg.HWIDResetCooldown,
		SideEffectTimeout: cfg.SideEffectTimeout,
	}
	svc, err := license.NewService(database, dispatcher, promMetrics, licCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize license service")
		return 1
	}
	if cfg.ClaimRoleID == "" {
		logger.Warn().Msg("CLAIM_ROLE_ID not set, any guild member can claim")
	}

	// Discord sign-in
	discord, err := auth.NewDiscord(auth.DefaultDiscordConfig(
		cfg.DiscordClientID,
		cfg.DiscordClientSecret,
		cfg.DiscordRedirectURL,
		cfg.DiscordGuildID,
	), discordClient, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize Discord OAuth")
		return 1
	}

	sessionCfg := auth.DefaultSessionConfig([]byte(cfg.SessionSecret), cfg.SessionSecure)
	sessionCfg.MaxAge = cfg.SessionMaxAge
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = config.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to connect to Redis")
			return 1
		}
		defer redisClient.Close()
	}

	// Build API router
	routerCfg := api.Config{
		Environment:        cfg.Environment,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitPeriod:    cfg.RateLimitPeriod,
		Redis:              redisClient,
		MaxBodyBytes:       api.DefaultConfig().MaxBodyBytes,
		RedirectAfterLogin: cfg.PostLoginRedirect,
		Version:            Version,
		Commit:             Commit,
		BuildDate:          BuildDate,
	}

	router, err := api.NewRouter(routerCfg, api.Dependencies{
		Service:  svc,
		Database: database,
		Provider: discord,
		Sessions: sessions,
		Policy:   auth.NewRolePolicy(cfg.AdminRoleID, cfg.AdminOwnerIDs).WithRolesMaxAge(cfg.RolesMaxAge),
		Metrics:  promMetrics,
		Gatherer: registry,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("HTTP server error")
		return 1
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	// Let in-flight tier syncs and notifications finish.
	svc.Wait()

	logger.Info().Msg("Server stopped gracefully")
	return 0
}

// newDispatcher builds the notification sinks that are configured.
func newDispatcher(cfg config.ServerConfig, client *http.Client, logger zerolog.Logger) (*notifications.Dispatcher, error) {
	var sinks []notifications.Sink

	if cfg.DiscordWebhookURL != "" {
		if err := notifications.ValidateWebhookURL(cfg.DiscordWebhookURL, true); err != nil {
			return nil, err
		}
		discord, err := notifications.NewDiscordSender(notifications.DiscordConfig{
			WebhookURL: cfg.DiscordWebhookURL,
			Username:   "modlicense",
		}, client, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, discord)
	}

	if cfg.WebhookURL != "" {
		if err := notifications.ValidateWebhookURL(cfg.WebhookURL, cfg.IsProduction()); err != nil {
			return nil, err
		}
		webhook, err := notifications.NewWebhookSender(notifications.WebhookConfig{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
		}, client, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, webhook)
	}

	if cfg.AMQPURL != "" {
		publisher, err := notifications.NewAMQPPublisher(notifications.AMQPConfig{URL: cfg.AMQPURL}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, publisher)
	}

	return notifications.NewDispatcher(logger, sinks...), nil
}
