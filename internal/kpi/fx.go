package kpi

import (
	kpiservice "github.com/smallbiznis/propbill/internal/kpi/service"
	"go.uber.org/fx"
)

var Module = fx.Module("kpi.service",
	fx.Provide(kpiservice.NewService),
)
