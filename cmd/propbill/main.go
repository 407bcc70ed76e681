package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/migration"
	"github.com/smallbiznis/propbill/internal/observability"
	"github.com/smallbiznis/propbill/internal/scheduler"
	"github.com/smallbiznis/propbill/internal/seed"
	"github.com/smallbiznis/propbill/internal/server"
	"github.com/smallbiznis/propbill/pkg/db"
	"go.uber.org/fx"
)

// propbill runs the API, the monthly scheduler and migrations in one process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
