package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ProxyCache is a short-lived Redis cache of raw (content, source, target)
// translations. It only saves duplicate backend calls during bursts and is
// unrelated to the permanent per-message Cache. Entries expire on their own.
type ProxyCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	sfGroup singleflight.Group
	stats   proxyStats
}

type proxyStats struct {
	hits   uint64
	misses uint64
	errors uint64
}

// ProxyStats is a snapshot of the cache counters.
type ProxyStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Errors  uint64  `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// NewProxyCache creates a proxy cache. A non-positive ttl means 15 minutes.
func NewProxyCache(client *redis.Client, ttl time.Duration) *ProxyCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ProxyCache{client: client, prefix: "translate:", ttl: ttl}
}

func (c *ProxyCache) key(content, source, target string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + content))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Do returns the cached result for (content, source, target) or runs fn,
// sharing one fn call between concurrent identical requests. Failed results
// are not cached. Redis problems fall through to fn.
func (c *ProxyCache) Do(ctx context.Context, content, source, target string, fn func(context.Context) (string, error)) (string, error) {
	key := c.key(content, source, target)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		atomic.AddUint64(&c.stats.hits, 1)
		return cached, nil
	case errors.Is(err, redis.Nil):
		atomic.AddUint64(&c.stats.misses, 1)
	default:
		atomic.AddUint64(&c.stats.errors, 1)
		slog.Warn("proxy_cache_get_failed", "error", err)
	}

	val, err, _ := c.sfGroup.Do(key, func() (any, error) {
		result, err := fn(ctx)
		if err != nil {
			return "", err
		}
		if setErr := c.client.Set(ctx, key, result, c.ttl).Err(); setErr != nil {
			atomic.AddUint64(&c.stats.errors, 1)
			slog.Warn("proxy_cache_set_failed", "error", setErr)
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// Stats returns the current counters.
func (c *ProxyCache) Stats() ProxyStats {
	hits := atomic.LoadUint64(&c.stats.hits)
	misses := atomic.LoadUint64(&c.stats.misses)

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return ProxyStats{
		Hits:    hits,
		Misses:  misses,
		Errors:  atomic.LoadUint64(&c.stats.errors),
		HitRate: hitRate,
	}
}
