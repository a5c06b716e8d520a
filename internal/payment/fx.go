package payment

import (
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	"github.com/cargovera/cargovera/internal/payment/gateway"
	"github.com/cargovera/cargovera/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		func() paydomain.Gateway { return gateway.NewStub() },
		service.NewService,
	),
)
