package carrier

import (
	"github.com/cargovera/cargovera/internal/carrier/tokencache"
	"github.com/cargovera/cargovera/internal/clock"
	"github.com/cargovera/cargovera/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("carrier",
	fx.Provide(
		provideTokenCache,
		NewRegistry,
	),
)

// provideTokenCache prefers the shared redis cache when an address is
// configured, falling back to in-process memory.
func provideTokenCache(cfg config.Config, clk clock.Clock, log *zap.Logger) tokencache.Cache {
	if cfg.RedisAddr == "" {
		return tokencache.NewMemory(clk)
	}
	log.Named("carrier").Info("using redis token cache", zap.String("addr", cfg.RedisAddr))
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return tokencache.NewRedis(client)
}
