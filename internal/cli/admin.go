package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/database"
	"github.com/iliyamo/flightdesk/internal/dispatch"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/middleware"
	"github.com/iliyamo/flightdesk/internal/repository"
	"github.com/iliyamo/flightdesk/internal/utils"
)

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmdContext(cmd)
			_, log, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("schema ready")
			return nil
		},
	}
}

// newResetCountersCmd is meant for a daily cron job at the start of the
// operating day.
func newResetCountersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-counters",
		Short: "Zero every pilot's daily flight counter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmdContext(cmd)
			cfg, log, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer db.Close()

			d := dispatch.NewDispatcher(repository.NewStore(db), nil, cfg.Dispatch, log, metrics.Noop())
			n, err := d.ResetDailyFlightCounts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d pilot counters\n", n)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		role    string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an operator or automation caller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role = strings.ToUpper(role)
			if role != middleware.RoleAdmin && role != middleware.RoleAutomation {
				return fmt.Errorf("role must be %s or %s", middleware.RoleAdmin, middleware.RoleAutomation)
			}
			cfg := config.LoadLenient()
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.AccessTTLMin) * time.Minute
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", middleware.RoleAutomation, "token role (ADMIN or AUTOMATION)")
	cmd.Flags().StringVar(&subject, "subject", "automation", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL_MIN)")
	return cmd
}
