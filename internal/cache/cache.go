// Package cache stores classifier predictions keyed by image content so that
// re-submitted photos skip the inference backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/tphakala/cropdoc/internal/classifier"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

const keyPrefix = "cropdoc:pred:"

// DefaultTTL applies when settings leave the TTL unset.
const DefaultTTL = 15 * time.Minute

// Store caches predictions. Get reports a miss with ok == false and a nil
// error; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (preds []classifier.Prediction, ok bool, err error)
	Set(ctx context.Context, key string, preds []classifier.Prediction) error
	Close() error
}

// Key derives the cache key for an image classified by backend.
func Key(backend string, image []byte) string {
	sum := sha256.Sum256(image)
	return keyPrefix + backend + ":" + hex.EncodeToString(sum[:])
}

func getLogger() logger.Logger {
	return logger.Global().Module("cache")
}

// New returns the store selected in settings.
func New(ctx context.Context, cs *conf.CacheSettings) (Store, error) {
	ttl := cs.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch strings.ToLower(strings.TrimSpace(cs.Backend)) {
	case "", conf.CacheMemory:
		return NewMemory(ttl), nil
	case conf.CacheRedis:
		return NewRedis(ctx, cs.RedisURL, ttl)
	default:
		return nil, errors.Newf("unknown cache backend %q", cs.Backend).
			Component("cache").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
