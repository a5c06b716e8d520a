package main

import (
	"github.com/cargovera/cargovera/internal/carrier"
	"github.com/cargovera/cargovera/internal/carrier/fedex"
	"github.com/cargovera/cargovera/internal/carrier/tokencache"
	"github.com/cargovera/cargovera/internal/carrier/usps"
	"github.com/cargovera/cargovera/internal/clock"
	"github.com/cargovera/cargovera/internal/config"
	"github.com/cargovera/cargovera/internal/fulfillment"
	"github.com/cargovera/cargovera/internal/inventory"
	"github.com/cargovera/cargovera/internal/label"
	"github.com/cargovera/cargovera/internal/ledger"
	"github.com/cargovera/cargovera/internal/migration"
	"github.com/cargovera/cargovera/internal/notify"
	"github.com/cargovera/cargovera/internal/observability"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	"github.com/cargovera/cargovera/internal/payment"
	"github.com/cargovera/cargovera/internal/server"
	"github.com/cargovera/cargovera/internal/storage"
	"github.com/cargovera/cargovera/internal/user"
	"github.com/cargovera/cargovera/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		migration.Module,
		storage.Module,
		notify.Module,
		carrier.Module,
		ledger.Module,
		user.Module,
		inventory.Module,
		fulfillment.Module,
		label.Module,
		payment.Module,
		server.Module,
		fx.Invoke(registerCarriers),
	).Run()
}

func registerCarriers(reg *carrier.Registry, cfg config.Config, tokens tokencache.Cache, log *zap.Logger, m *obsmetrics.Metrics) {
	reg.Register(fedex.New(cfg.FedEx, tokens, cfg.TokenCacheTTL, log, m))
	reg.Register(usps.New(cfg.USPS, tokens, cfg.TokenCacheTTL, log, m))
}
