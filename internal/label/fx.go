package label

import (
	"github.com/cargovera/cargovera/internal/label/service"
	"go.uber.org/fx"
)

var Module = fx.Module("label.service",
	fx.Provide(service.NewService),
)
