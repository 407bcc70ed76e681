package main

import (
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
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the monthly run
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

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
