/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "transcript:"

type CacheConfig struct {
	RedisClient *redis.Client
	Source      Source
	TTL         time.Duration

	// Logf receives cache errors; nil discards them.
	Logf func(format string, args ...any)
}

// RedisCache serves transcripts from Redis, falling through to Source on a miss.
// Generated games never change, so a hit is always safe to replay.
type RedisCache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
	logf   func(format string, args ...any)
}

func NewRedisCache(cfg *CacheConfig) (*RedisCache, error) {
	if cfg == nil {
		return nil, errors.New("cache config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if cfg.Source == nil {
		return nil, errors.New("source cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &RedisCache{
		client: cfg.RedisClient,
		source: cfg.Source,
		ttl:    cfg.TTL,
		logf:   logf,
	}, nil
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s%d:%d", cacheKeyPrefix, req.Round, req.Players)
}

func (c *RedisCache) Load(ctx context.Context, req Request) (*Transcript, error) {
	req = req.withDefaults()
	key := cacheKey(req)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Transcript
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
		c.logf("CACHE: Discarding undecodable entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.logf("CACHE: Get %s failed: %v", key, err)
	}

	t, err := c.source.Load(ctx, req)
	if err != nil {
		return nil, err
	}

	// Empty games are usually a backend still writing its log; don't pin them.
	if t.Len() == 0 {
		return t, nil
	}

	data, err = json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logf("CACHE: Set %s failed: %v", key, err)
	}

	return t, nil
}
