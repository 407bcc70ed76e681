package feeplan

import (
	"github.com/smallbiznis/propbill/internal/feeplan/repository"
	"github.com/smallbiznis/propbill/internal/feeplan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feeplan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
