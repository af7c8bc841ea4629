package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zaqqye/exit_slip_backend/internal/config"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/utils"
)

func newTokenCommand() *cobra.Command {
	var (
		actor models.Actor
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}
			if actor.ID == "" {
				return fmt.Errorf("--staff-id is required")
			}
			tok, err := middleware.IssueToken(cfg.JWTSecret, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor.ID, "staff-id", "", "Staff identifier")
	cmd.Flags().StringVar(&actor.Name, "name", "", "Display name stamped on approvals and exits")
	cmd.Flags().StringVar(&actor.Role, "role", models.RoleProctor, "proctor, gate or admin")
	cmd.Flags().StringVar(&actor.Gate, "gate", "", "Gate name for gate staff")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
	return cmd
}

func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to put in MAINTENANCE_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := utils.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
}
