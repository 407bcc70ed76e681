package payment

import (
	"github.com/smallbiznis/propbill/internal/payment/repository"
	paymentservice "github.com/smallbiznis/propbill/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
)
