package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/spf13/cobra"
)

// operator is the licensing surface the CLI drives.
type operator interface {
	ListTokens(ctx context.Context, caller license.Caller, ownerID string) ([]models.TokenView, error)
	GrantToken(ctx context.Context, caller license.Caller, ownerID string, req models.GrantTokenRequest) (*models.TokenView, error)
	ExtendToken(ctx context.Context, caller license.Caller, ownerID, token string, days int) (*models.TokenView, error)
	DeleteToken(ctx context.Context, caller license.Caller, ownerID, token string) (bool, error)
	ResetCooldown(ctx context.Context, caller license.Caller, ownerID string) (bool, error)
	ResetAllHWID(ctx context.Context, caller license.Caller, ownerID string) (int64, error)
	SearchOwners(ctx context.Context, caller license.Caller, search models.OwnerSearch) (*models.OwnerPage, error)
}

// withOperator loads the config, connects, and runs fn as the admin caller.
func (a *app) withOperator(cmd *cobra.Command, fn func(ctx context.Context, op operator, caller license.Caller) error) error {
	cfg, err := a.loadConfig(true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	op, release, err := a.connect(ctx, cfg, a.logger())
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, op, adminCaller(cfg))
}

func newTokensCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tokens <owner_id>",
		Short: "List the tokens of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				views, err := op.ListTokens(ctx, caller, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), views)
				}
				printTokens(cmd.OutOrStdout(), views)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func newGrantCmd(a *app) *cobra.Command {
	var tier string
	var days int

	cmd := &cobra.Command{
		Use:   "grant <owner_id>",
		Short: "Grant a token to an owner",
		Long: `Grant a token of the given tier to an owner.

A duration of 0 days grants a token that never expires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || days > 3650 {
				return fmt.Errorf("--days must be between 0 and 3650")
			}
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				view, err := op.GrantToken(ctx, caller, args[0], models.GrantTokenRequest{
					Tier:         tier,
					DurationDays: days,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %s token %s to %s (%s)\n",
					view.Tier, view.Token, args[0], view.DurationLabel)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Token tier (basic or vip)")
	cmd.Flags().IntVar(&days, "days", 0, "Validity in days, 0 for unlimited")
	_ = cmd.MarkFlagRequired("tier")

	return cmd
}

func newExtendCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "extend <owner_id> <token>",
		Short: "Extend the validity of a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				view, err := op.ExtendToken(ctx, caller, args[0], args[1], days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token %s now expires %s\n", view.Token, formatExpiry(view))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Days to add (1-3650)")
	_ = cmd.MarkFlagRequired("days")

	return cmd
}

func newRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <owner_id> <token>",
		Short: "Delete a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				deleted, err := op.DeleteToken(ctx, caller, args[0], args[1])
				if err != nil {
					return err
				}
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "Token %s deleted\n", license.NormalizeToken(args[1]))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Token %s not found for %s\n", license.NormalizeToken(args[1]), args[0])
				}
				return nil
			})
		},
	}
}

func newResetCooldownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-cooldown <owner_id>",
		Short: "Allow an owner to claim again immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				reset, err := op.ResetCooldown(ctx, caller, args[0])
				if err != nil {
					return err
				}
				if reset {
					fmt.Fprintf(cmd.OutOrStdout(), "Claim cooldown of %s reset\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s has no active cooldown\n", args[0])
				}
				return nil
			})
		},
	}
}

func newResetHWIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-hwid <owner_id>",
		Short: "Unbind every token of an owner from its device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				n, err := op.ResetAllHWID(ctx, caller, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d hardware ID(s) for %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newOwnersCmd(a *app) *cobra.Command {
	var page, perPage int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "owners [query]",
		Short: "Search owners by ID or username",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			search := models.OwnerSearch{Page: page, PerPage: perPage}
			if len(args) == 1 {
				search.Query = args[0]
			}
			return a.withOperator(cmd, func(ctx context.Context, op operator, caller license.Caller) error {
				result, err := op.SearchOwners(ctx, caller, search)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				printOwners(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 25, "Owners per page (max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
