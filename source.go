/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/Seednode/werewolf-replay/transcript"
	"github.com/redis/go-redis/v9"
)

// newSource builds the transcript source described by cfg. The returned
// close func releases the Redis connection, if any.
func newSource(cfg *Config) (transcript.Source, func() error, error) {
	nop := func() error { return nil }

	var src transcript.Source

	if cfg.transcriptDir != "" {
		fileSource, err := transcript.NewFileSource(cfg.transcriptDir)
		if err != nil {
			return nil, nop, err
		}

		logf(cfg, "SOURCE: Reading transcripts from %s", cfg.transcriptDir)

		src = fileSource
	} else {
		client, err := transcript.NewClient(&transcript.ClientConfig{
			BaseURL:   cfg.backendURL,
			Timeout:   cfg.fetchTimeout,
			UserAgent: "werewolf-replay/" + releaseVersion,
		})
		if err != nil {
			return nil, nop, err
		}

		loader, err := transcript.NewLoader(&transcript.LoaderConfig{
			Backend:    client,
			RetryDelay: cfg.retryDelay,
			Logf: func(format string, args ...any) {
				logf(cfg, "SOURCE: "+format, args...)
			},
		})
		if err != nil {
			return nil, nop, err
		}

		logf(cfg, "SOURCE: Fetching transcripts from %s", cfg.backendURL)

		src = loader
	}

	if cfg.redisAddr == "" {
		return src, nop, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})

	cache, err := transcript.NewRedisCache(&transcript.CacheConfig{
		RedisClient: rdb,
		Source:      src,
		TTL:         cfg.cacheTTL,
		Logf: func(format string, args ...any) {
			errorf("CACHE: "+format, args...)
		},
	})
	if err != nil {
		_ = rdb.Close()

		return nil, nop, fmt.Errorf("transcript cache: %w", err)
	}

	logf(cfg, "SOURCE: Caching transcripts in redis at %s", cfg.redisAddr)

	return cache, rdb.Close, nil
}
