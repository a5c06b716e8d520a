package fulfillment

import (
	"github.com/cargovera/cargovera/internal/fulfillment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fulfillment.service",
	fx.Provide(service.NewService),
)
