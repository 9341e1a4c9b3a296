package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

const normalizedKeyPrefix = "normalized"

// store is the subset of RedisCache used by NormalizedTextCache
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NormalizedTextCache memoizes normalizer output per pipeline fingerprint, so
// a configuration change never serves stale text
type NormalizedTextCache struct {
	store  store
	ttl    time.Duration
	logger *slog.Logger
}

// NewNormalizedTextCache creates a cache over Redis. A zero ttl keeps entries forever.
func NewNormalizedTextCache(redisCache *RedisCache, ttl time.Duration, logger *slog.Logger) *NormalizedTextCache {
	return newNormalizedTextCache(redisCache, ttl, logger)
}

func newNormalizedTextCache(s store, ttl time.Duration, logger *slog.Logger) *NormalizedTextCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizedTextCache{
		store:  s,
		ttl:    ttl,
		logger: logger,
	}
}

// NormalizedKey builds normalized:<fingerprint>:<sha256 of the raw text>
func NormalizedKey(fingerprint, text string) string {
	sum := sha256.Sum256([]byte(text))
	return normalizedKeyPrefix + ":" + fingerprint + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached normalized text; found is false on a miss
func (c *NormalizedTextCache) Get(ctx context.Context, fingerprint, text string) (string, bool, error) {
	value, err := c.store.Get(ctx, NormalizedKey(fingerprint, text))
	if errors.Is(err, ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores the normalized form of text
func (c *NormalizedTextCache) Set(ctx context.Context, fingerprint, text, normalized string) error {
	if err := c.store.Set(ctx, NormalizedKey(fingerprint, text), normalized, c.ttl); err != nil {
		c.logger.Warn("failed to cache normalized text",
			slog.String("fingerprint", fingerprint),
			"error", err)
		return err
	}
	return nil
}
