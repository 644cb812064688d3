/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/Seednode/werewolf-replay/transcript"
)

// ErrSuperseded is returned by Session.Load when a newer load started before
// this one finished. The older result is dropped.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Status describes the most recent transcript load.
type Status struct {
	Loading bool
	Request transcript.Request
	Err     error
	Issues  []transcript.Issue
}

type SessionConfig struct {
	Source     transcript.Source
	Controller *Controller

	// OnStatus is called with the session lock held whenever Status changes.
	OnStatus func(Status)
}

// Session loads transcripts into a Controller. Only the newest load may
// reach the controller, whatever order the responses arrive in.
type Session struct {
	source     transcript.Source
	controller *Controller
	onStatus   func(Status)

	mu         sync.Mutex
	generation uint64
	status     Status
}

func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session config cannot be nil")
	}
	if cfg.Source == nil {
		return nil, errors.New("source cannot be nil")
	}
	if cfg.Controller == nil {
		return nil, errors.New("controller cannot be nil")
	}

	return &Session{
		source:     cfg.Source,
		controller: cfg.Controller,
		onStatus:   cfg.OnStatus,
	}, nil
}

func (s *Session) Controller() *Controller {
	return s.controller
}

// Load fetches req and, unless a newer Load has started meanwhile, resets the
// controller onto it. A failed load empties the controller so nothing stale
// stays playable.
func (s *Session) Load(ctx context.Context, req transcript.Request) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.setStatusLocked(Status{Loading: true, Request: req})
	s.mu.Unlock()

	t, err := s.source.Load(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrSuperseded
	}

	if err != nil {
		s.controller.Load(nil)
		s.setStatusLocked(Status{Request: req, Err: err})

		return err
	}

	s.controller.Load(t)
	s.setStatusLocked(Status{Request: req, Issues: transcript.Validate(t)})

	return nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

func (s *Session) setStatusLocked(st Status) {
	s.status = st

	if s.onStatus != nil {
		s.onStatus(st)
	}
}
