/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_source.go github.com/Seednode/werewolf-replay/transcript Source

// Source produces the transcript for a request.
type Source interface {
	Load(ctx context.Context, req Request) (*Transcript, error)
}

// maxBodySize caps a transcript response; a full game log is well under this.
const maxBodySize = 16 << 20

// ClientConfig configures a backend Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the game-generation backend.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https: %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		base:      base,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		http:      hc,
	}, nil
}

// Fetch retrieves the transcript for round. A 404 means the backend has not
// generated it yet and is reported as ErrNotFound.
func (c *Client) Fetch(ctx context.Context, round int) (*Transcript, error) {
	q := url.Values{}
	q.Set("n_round", strconv.Itoa(round))

	body, err := c.get(ctx, "fetch", "/api/game-data", q)
	if err != nil {
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("fetch: decode transcript: %w", err)
	}

	return &t, nil
}

// Init asks the backend to generate a game for round with the given number of players.
func (c *Client) Init(ctx context.Context, round, players int) error {
	q := url.Values{}
	q.Set("n_round", strconv.Itoa(round))
	q.Set("n_player", strconv.Itoa(players))

	_, err := c.get(ctx, "init", "/api/init-game", q)

	return err
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Op: op, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	return body, nil
}
