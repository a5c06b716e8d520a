// Package tokencache caches carrier OAuth tokens with an explicit TTL so
// adapters refresh on expiry instead of round-tripping the auth endpoint on
// every call.
package tokencache

import (
	"context"
	"time"
)

// Cache stores short-lived bearer tokens. A miss (expired or never set)
// returns ok=false, never an error.
type Cache interface {
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}
