package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/observability"
	"github.com/smallbiznis/propbill/internal/server"
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

		// Migrations run from propbillctl or the monolith.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
