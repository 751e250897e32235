// Package redis implements session.KV against go-redis, namespacing all
// three of the authority's stores (oauth state, oauth session, access
// token) under one prefix per store so they can share a single Redis
// instance without key collisions. Grounded on the teacher's
// common/mredis/redis.go connection-wrapper shape, adapted here from a
// lazily-connected client hub to three thin namespaced views over one.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barazo-forum/barazo-api/internal/platform/dbredis"
)

// KV implements session.KV over one key prefix of a shared Redis
// connection.
type KV struct {
	conn   *dbredis.Connection
	prefix string
}

// NewKV constructs a KV view namespaced under prefix (e.g. "oauth-state:",
// "session:", "token:").
func NewKV(conn *dbredis.Connection, prefix string) *KV {
	return &KV{conn: conn, prefix: prefix}
}

func (k *KV) key(key string) string { return k.prefix + key }

// Set implements session.KV.
func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	client, err := k.conn.Client(ctx)
	if err != nil {
		return err
	}

	return client.Set(ctx, k.key(key), value, ttl).Err()
}

// Get implements session.KV.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := k.conn.Client(ctx)
	if err != nil {
		return "", false, err
	}

	value, err := client.Get(ctx, k.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Del implements session.KV.
func (k *KV) Del(ctx context.Context, key string) error {
	client, err := k.conn.Client(ctx)
	if err != nil {
		return err
	}

	return client.Del(ctx, k.key(key)).Err()
}

// AccountFilterCache holds per-account filtered status under
// account-filter:<repoID> keys. The serve command only calls Invalidate, on
// receipt of an invalidation event (see modaction.CacheInvalidator,
// implemented directly by dbrabbitmq.Connection); no code path in this
// module calls Get or Set.
type AccountFilterCache struct {
	conn *dbredis.Connection
	ttl  time.Duration
}

// NewAccountFilterCache constructs an AccountFilterCache with the given
// entry TTL (defaults to 5 minutes if zero).
func NewAccountFilterCache(conn *dbredis.Connection, ttl time.Duration) *AccountFilterCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &AccountFilterCache{conn: conn, ttl: ttl}
}

func accountFilterKey(repoID string) string { return "account-filter:" + repoID }

// Get returns the cached filtered-status for repoID, and whether the cache
// had an entry at all.
func (c *AccountFilterCache) Get(ctx context.Context, repoID string) (filtered bool, found bool, err error) {
	client, err := c.conn.Client(ctx)
	if err != nil {
		return false, false, err
	}

	value, err := client.Get(ctx, accountFilterKey(repoID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	return value == "1", true, nil
}

// Set populates the cache entry for repoID with the configured TTL.
func (c *AccountFilterCache) Set(ctx context.Context, repoID string, filtered bool) error {
	client, err := c.conn.Client(ctx)
	if err != nil {
		return err
	}

	value := "0"
	if filtered {
		value = "1"
	}

	return client.Set(ctx, accountFilterKey(repoID), value, c.ttl).Err()
}

// Invalidate drops the cache entry; the key shape matches the one
// modaction.Propagator publishes to the invalidation fan-out, so a
// subscriber on that fan-out just needs to call this on receipt.
func (c *AccountFilterCache) Invalidate(ctx context.Context, repoID string) error {
	client, err := c.conn.Client(ctx)
	if err != nil {
		return err
	}

	return client.Del(ctx, accountFilterKey(repoID)).Err()
}
