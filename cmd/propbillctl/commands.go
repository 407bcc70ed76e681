package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	"github.com/smallbiznis/propbill/internal/migration"
	"github.com/smallbiznis/propbill/internal/observability"
	"github.com/smallbiznis/propbill/internal/period"
	"github.com/smallbiznis/propbill/internal/scheduler"
	"github.com/smallbiznis/propbill/internal/seed"
	"github.com/smallbiznis/propbill/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed the default organization when enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(cmd, func(context.Context) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
			config.Module,
			observability.Module,
			fx.Provide(RegisterSnowflake),
			db.Module,
			migration.Module,
			seed.Module,
		)
	},
}

var generateFlags struct {
	month    string
	org      string
	property string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate invoices for a month (default: the previous month)",
	Long: `Generate invoices for a month.

Without --org every property of every organization is billed, exactly as the
scheduled run does. With --org only that organization is billed, either one
--property or the organization as a whole. Existing invoices are returned
unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := parseOptionalID(generateFlags.org, "org")
		if err != nil {
			return err
		}
		propertyID, err := parseOptionalID(generateFlags.property, "property")
		if err != nil {
			return err
		}
		if propertyID != 0 && orgID == 0 {
			return fmt.Errorf("--property requires --org")
		}

		var (
			sched      *scheduler.Scheduler
			invoiceSvc invoicedomain.Service
			clk        clock.Clock
		)
		return runWith(cmd, func(ctx context.Context) error {
			month := period.MonthStart(clk.Now()).AddDate(0, -1, 0)
			if generateFlags.month != "" {
				parsed, err := period.ParseMonth(generateFlags.month)
				if err != nil {
					return fmt.Errorf("invalid --month %q", generateFlags.month)
				}
				month = parsed
			}

			if orgID == 0 {
				summary, err := sched.RunMonth(ctx, month)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: orgs=%d created=%d existing=%d failed=%d\n",
					period.Format(summary.Month), summary.Orgs, summary.Created, summary.Existing, summary.Failed)
				return nil
			}
			return generateOne(ctx, cmd, invoiceSvc, orgID, propertyID, month)
		}, engineModules(), fx.Populate(&sched, &invoiceSvc, &clk))
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateFlags.month, "month", "", "bill month as YYYY-MM")
	generateCmd.Flags().StringVar(&generateFlags.org, "org", "", "organization id")
	generateCmd.Flags().StringVar(&generateFlags.property, "property", "", "property id (requires --org)")
}

func generateOne(ctx context.Context, cmd *cobra.Command, svc invoicedomain.Service, orgID, propertyID snowflake.ID, month time.Time) error {
	result, err := svc.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{
		OrgID:       orgID,
		Month:       month,
		PropertyID:  propertyID,
		GeneratedBy: "cli",
	})
	if err != nil {
		return err
	}
	state := "existing"
	if result.Created {
		state = "created"
		if err := svc.NotifyCreated(ctx, result.Invoice); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s amount_due_minor=%d (%s)\n",
		result.Invoice.InvoiceNumber, period.Format(result.Invoice.BillMonth), result.Invoice.AmountDueMinor, state)
	return nil
}

var reapplyFlags struct {
	org  string
	user string
}

var reapplyFeeCmd = &cobra.Command{
	Use:   "reapply-fee",
	Short: "Re-price an organization's invoices with the fee plans now in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := parseOptionalID(reapplyFlags.org, "org")
		if err != nil {
			return err
		}
		if orgID == 0 {
			return fmt.Errorf("--org is required")
		}
		userID, err := parseOptionalID(reapplyFlags.user, "user")
		if err != nil {
			return err
		}
		var userFilter *snowflake.ID
		if userID != 0 {
			userFilter = &userID
		}

		var invoiceSvc invoicedomain.Service
		return runWith(cmd, func(ctx context.Context) error {
			result, err := invoiceSvc.ReapplyFee(ctx, orgID, userFilter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d updated=%d\n", result.Scanned, result.Updated)
			return nil
		}, engineModules(), fx.Populate(&invoiceSvc))
	},
}

func init() {
	reapplyFeeCmd.Flags().StringVar(&reapplyFlags.org, "org", "", "organization id")
	reapplyFeeCmd.Flags().StringVar(&reapplyFlags.user, "user", "", "only invoices of this user")
}
