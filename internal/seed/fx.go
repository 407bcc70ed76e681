package seed

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module seeds the default organization. Register it after migration.Module.
var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, billing *config.BillingConfigHolder, node *snowflake.Node) error {
		if !cfg.SeedDefaultOrg {
			return nil
		}
		return EnsureMainOrg(conn, node, billing.Get().Currency)
	}),
)
