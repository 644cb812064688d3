/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when the backend has no transcript for a round yet.
	ErrNotFound = errors.New("transcript not found")

	// ErrEmptyTranscript marks a transcript with no dialogue.
	ErrEmptyTranscript = errors.New("transcript has no dialogue")
)

// NetworkError wraps a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx, non-404 response from the backend.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
}

// LoadFailure is the terminal error of a transcript load, after any
// initialize-and-retry has been attempted.
type LoadFailure struct {
	Request Request
	Err     error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("load round %d (%d players): %v", e.Request.Round, e.Request.Players, e.Err)
}

func (e *LoadFailure) Unwrap() error {
	return e.Err
}

// MissingPlayerError is returned when a dialogue speaker is not on the roster.
type MissingPlayerError struct {
	Name string
}

func (e *MissingPlayerError) Error() string {
	return fmt.Sprintf("no player named %q", e.Name)
}

// AmbiguousPlayerError is returned when more than one player shares a name,
// so a speaker cannot be resolved to a single seat.
type AmbiguousPlayerError struct {
	Name string
	IDs  []int
}

func (e *AmbiguousPlayerError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, strconv.Itoa(id))
	}

	return fmt.Sprintf("player name %q is shared by ids %s", e.Name, strings.Join(ids, ", "))
}

// Kind classifies a load error for display.
func Kind(err error) string {
	var (
		netErr    *NetworkError
		statusErr *StatusError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrEmptyTranscript):
		return "empty"
	default:
		return "load"
	}
}
