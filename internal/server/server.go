// Package server exposes the thin HTTP operation surface: bind, call the
// service, translate the error.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cargovera/cargovera/internal/config"
	fulfilldomain "github.com/cargovera/cargovera/internal/fulfillment/domain"
	invdomain "github.com/cargovera/cargovera/internal/inventory/domain"
	labeldomain "github.com/cargovera/cargovera/internal/label/domain"
	ledgerdomain "github.com/cargovera/cargovera/internal/ledger/domain"
	obsmetrics "github.com/cargovera/cargovera/internal/observability/metrics"
	paydomain "github.com/cargovera/cargovera/internal/payment/domain"
	userdomain "github.com/cargovera/cargovera/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewRouter),
	fx.Invoke(Run),
)

type RouterParams struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	Users        userdomain.Service
	Ledger       ledgerdomain.Service
	Inventories  invdomain.Service
	Fulfillments fulfilldomain.Service
	Labels       labeldomain.Service
	Payments     paydomain.Service
	ObsMetrics   *obsmetrics.Metrics
}

func NewRouter(p RouterParams) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log := p.Log.Named("http")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.ObsMetrics.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	(&walletHandler{users: p.Users, ledger: p.Ledger, payments: p.Payments, log: log}).register(v1)
	(&webhookHandler{payments: p.Payments, log: log}).register(v1)
	(&inventoryHandler{inventories: p.Inventories, log: log}).register(v1)
	(&fulfillmentHandler{fulfillments: p.Fulfillments, log: log}).register(v1)
	(&labelHandler{labels: p.Labels, log: log}).register(v1)
	(&adminHandler{users: p.Users, log: log}).register(v1)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Run binds the HTTP listener to the fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, router *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
