/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRetryDelay is how long the backend is given to generate a game
// before the single retry.
const DefaultRetryDelay = 2 * time.Second

// Backend is the subset of Client the Loader needs.
type Backend interface {
	Fetch(ctx context.Context, round int) (*Transcript, error)
	Init(ctx context.Context, round, players int) error
}

type LoaderConfig struct {
	Backend    Backend
	RetryDelay time.Duration

	// Logf receives progress lines; nil discards them.
	Logf func(format string, args ...any)
}

// Loader fetches transcripts, asking the backend to generate a missing one
// and retrying exactly once. Concurrent loads of the same request share a
// single backend round trip.
type Loader struct {
	backend    Backend
	retryDelay time.Duration
	logf       func(format string, args ...any)
	group      singleflight.Group
}

func NewLoader(cfg *LoaderConfig) (*Loader, error) {
	if cfg == nil {
		return nil, errors.New("loader config cannot be nil")
	}
	if cfg.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Loader{
		backend:    cfg.Backend,
		retryDelay: delay,
		logf:       logf,
	}, nil
}

func (l *Loader) Load(ctx context.Context, req Request) (*Transcript, error) {
	req = req.withDefaults()
	key := fmt.Sprintf("%d:%d", req.Round, req.Players)

	// The shared trip outlives any single caller; each request is still bounded
	// by the client timeout.
	shared := context.WithoutCancel(ctx)

	ch := l.group.DoChan(key, func() (any, error) {
		return l.load(shared, req)
	})

	select {
	case <-ctx.Done():
		return nil, &LoadFailure{Request: req, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			l.logf("LOAD: Shared in-flight load of round %d", req.Round)
		}
		if res.Err != nil {
			return nil, &LoadFailure{Request: req, Err: res.Err}
		}

		return res.Val.(*Transcript), nil
	}
}

func (l *Loader) load(ctx context.Context, req Request) (*Transcript, error) {
	t, err := l.backend.Fetch(ctx, req.Round)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	l.logf("LOAD: Round %d not generated yet, initializing with %d players", req.Round, req.Players)

	if err := l.backend.Init(ctx, req.Round, req.Players); err != nil {
		return nil, fmt.Errorf("initialize game: %w", err)
	}

	timer := time.NewTimer(l.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	t, err = l.backend.Fetch(ctx, req.Round)
	if err != nil {
		return nil, fmt.Errorf("fetch after initialize: %w", err)
	}

	return t, nil
}
