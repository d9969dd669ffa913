// Package cache keeps hot read views (current leaders) out of Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Key string

func SlotKey(id uuid.UUID) Key   { return Key("leaders:slot:" + id.String()) }
func SingleKey(id uuid.UUID) Key { return Key("leaders:single:" + id.String()) }

// Loader reads the authoritative leader; nil means no bids yet.
type Loader func(ctx context.Context) (*auction.Bid, error)

type LeaderCache interface {
	Leader(ctx context.Context, key Key, load Loader) (*auction.Bid, error)
	Invalidate(ctx context.Context, keys ...Key)
}

// entry wraps the bid so "no leader" is cacheable too.
type entry struct {
	Bid *auction.Bid `json:"bid"`
}

type RedisLeaders struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

var _ LeaderCache = (*RedisLeaders)(nil)

func NewRedisLeaders(client *redis.Client, ttl time.Duration) *RedisLeaders {
	return &RedisLeaders{client: client, ttl: ttl}
}

func (c *RedisLeaders) Leader(ctx context.Context, key Key, load Loader) (*auction.Bid, error) {
	raw, err := c.client.Get(ctx, string(key)).Bytes()
	if err == nil {
		var e entry

		err = json.Unmarshal(raw, &e)
		if err == nil {
			return e.Bid, nil
		}

		logging.From(ctx).Warn("discard corrupt cache entry", "key", key, "error", err)
	} else if !errors.Is(err, redis.Nil) {
		logging.From(ctx).Warn("cache read failed", "key", key, "error", err)

		return load(ctx)
	}

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		bid, err := load(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(entry{Bid: bid})
		if err != nil {
			return nil, fmt.Errorf("encode leader: %w", err)
		}

		err = c.client.Set(ctx, string(key), payload, c.ttl).Err()
		if err != nil {
			logging.From(ctx).Warn("cache fill failed", "key", key, "error", err)
		}

		return bid, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load leader: %w", err)
	}

	bid, _ := v.(*auction.Bid)

	return bid, nil
}

func (c *RedisLeaders) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}

	err := c.client.Del(ctx, names...).Err()
	if err != nil {
		logging.From(ctx).Warn("cache invalidate failed", "keys", names, "error", err)
	}
}

// Direct reads through to the loader, collapsing concurrent reads of one key.
// It is used when Redis is disabled.
type Direct struct {
	group singleflight.Group
}

var _ LeaderCache = (*Direct)(nil)

func NewDirect() *Direct {
	return &Direct{}
}

func (c *Direct) Leader(ctx context.Context, key Key, load Loader) (*auction.Bid, error) {
	v, err, _ := c.group.Do(string(key), func() (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load leader: %w", err)
	}

	bid, _ := v.(*auction.Bid)

	return bid, nil
}

func (c *Direct) Invalidate(context.Context, ...Key) {}
