package storage

import (
	"github.com/cargovera/cargovera/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("storage",
	fx.Provide(func(cfg config.Config) Store {
		return NewFS(cfg.LabelStorageDir)
	}),
)
