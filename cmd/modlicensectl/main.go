// Package main is the entrypoint for the modlicense operator CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/MacJediWizard/modlicense/internal/config"
	"github.com/MacJediWizard/modlicense/internal/db"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by all commands.
type app struct {
	configPath string
	verbose    bool

	// connect opens the licensing service; the returned func releases it.
	connect func(ctx context.Context, cfg *config.CLIConfig, logger zerolog.Logger) (operator, func(), error)
}

func newApp() *app {
	return &app{connect: connectDatabase}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modlicensectl",
		Short: "modlicense operator CLI",
		Long: `modlicensectl administers a modlicense database directly.

It runs the same licensing rules as the server with administrator
privileges. Run 'modlicensectl init-config' to store the database URL
and the admin ID used to attribute grants.`,
		SilenceUsage: true,
	}

	defaultPath, err := config.DefaultConfigPath()
	if err != nil {
		defaultPath = "config.yml"
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultPath, "Path to the CLI config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log database activity")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitConfigCmd(a),
		newMigrateCmd(a),
		newTokensCmd(a),
		newGrantCmd(a),
		newExtendCmd(a),
		newRevokeCmd(a),
		newResetCooldownCmd(a),
		newResetHWIDCmd(a),
		newOwnersCmd(a),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "modlicensectl %s\n", Version)
			fmt.Fprintf(out, "  Commit:     %s\n", Commit)
			fmt.Fprintf(out, "  Built:      %s\n", BuildDate)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}

func newInitConfigCmd(a *app) *cobra.Command {
	var databaseURL, adminID string

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the CLI config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadCLIConfig(a.configPath)
			if err != nil {
				return err
			}
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}
			if adminID != "" {
				cfg.AdminID = adminID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", a.configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL")
	cmd.Flags().StringVar(&adminID, "admin-id", "", "Discord ID recorded as the granting admin")

	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	var status, list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				return listMigrations(out)
			}

			cfg, err := a.loadConfig(false)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := openDatabase(ctx, cfg.DatabaseURL, a.logger())
			if err != nil {
				return err
			}
			defer database.Close()

			if !status {
				applied, err := database.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(out, "Applied %d migration(s)\n", applied)
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Current schema version: %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show the current schema version without migrating")
	cmd.Flags().BoolVar(&list, "list", false, "List embedded migrations")

	return cmd
}

func listMigrations(out io.Writer) error {
	migrations, err := db.GetMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migrations found")
		return nil
	}
	fmt.Fprintln(out, "Available migrations:")
	for _, m := range migrations {
		fmt.Fprintf(out, "  %03d: %s\n", m.Version, m.Name)
	}
	return nil
}

// loadConfig reads the config file and environment overrides. requireAdmin
// also demands an admin ID.
func (a *app) loadConfig(requireAdmin bool) (*config.CLIConfig, error) {
	cfg, err := config.LoadCLIConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if requireAdmin {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required: run 'modlicensectl init-config' or set DATABASE_URL")
	}
	return cfg, nil
}

func (a *app) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// adminCaller is the identity CLI operations run as.
func adminCaller(cfg *config.CLIConfig) license.Caller {
	return license.Caller{
		OwnerID:  cfg.AdminID,
		Username: "modlicensectl",
		IsAdmin:  true,
	}
}

func openDatabase(ctx context.Context, url string, logger zerolog.Logger) (*db.DB, error) {
	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	database, err := db.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return database, nil
}

// connectDatabase builds a licensing service over the configured database.
// Grants made from the CLI send no notifications.
func connectDatabase(ctx context.Context, cfg *config.CLIConfig, logger zerolog.Logger) (operator, func(), error) {
	database, err := openDatabase(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := license.NewService(database, nil, nil, license.DefaultConfig(), logger)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	return svc, func() {
		svc.Wait()
		database.Close()
	}, nil
}
