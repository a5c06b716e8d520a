package notify

import (
	"context"

	"github.com/cargovera/cargovera/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(
		provideProvider,
		provideDispatcher,
	),
)

func provideProvider(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.Email.Enabled || cfg.Email.SMTPHost == "" {
		return NoOp{}
	}
	return NewSMTP(cfg.Email, log)
}

func provideDispatcher(lc fx.Lifecycle, log *zap.Logger) *Dispatcher {
	d := NewDispatcher(log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			d.Stop()
			return nil
		},
	})
	return d
}
