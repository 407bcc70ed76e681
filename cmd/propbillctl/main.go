package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/audit"
	"github.com/smallbiznis/propbill/internal/authorization"
	"github.com/smallbiznis/propbill/internal/booking"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/feeplan"
	"github.com/smallbiznis/propbill/internal/invoice"
	"github.com/smallbiznis/propbill/internal/kpi"
	"github.com/smallbiznis/propbill/internal/ledger"
	"github.com/smallbiznis/propbill/internal/observability"
	"github.com/smallbiznis/propbill/internal/organization"
	"github.com/smallbiznis/propbill/internal/property"
	"github.com/smallbiznis/propbill/internal/providers"
	"github.com/smallbiznis/propbill/internal/ratelimit"
	"github.com/smallbiznis/propbill/internal/scheduler"
	"github.com/smallbiznis/propbill/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	Version = "dev"

	commandTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "propbillctl",
	Short:         "Administrative tasks for the propbill billing engine",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "timeout", 10*time.Minute, "abort the command after this long")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reapplyFeeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// engineModules is the service graph shared by the commands. The scheduler's
// cron lifecycle hook is not registered; commands call it directly.
func engineModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		organization.Module,
		property.Module,
		ledger.Module,
		booking.Module,
		feeplan.Module,
		kpi.Module,
		invoice.Module,
		audit.Module,
		authorization.Module,
		providers.Module,
		ratelimit.Module,
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
	)
}

// runWith starts an app around opts, runs fn and stops the app again.
func runWith(cmd *cobra.Command, fn func(ctx context.Context) error, opts ...fx.Option) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	app := fx.New(append(opts, fx.NopLogger)...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func parseOptionalID(raw string, name string) (snowflake.ID, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return id, nil
}
