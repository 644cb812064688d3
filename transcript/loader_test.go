/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the game-generation service: game-data 404s until
// init-game has been called for the round.
type fakeBackend struct {
	mu          sync.Mutex
	generated   map[string]bool
	fetches     int
	inits       int
	initPlayers string
	failStatus  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{generated: make(map[string]bool)}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	round := r.URL.Query().Get("n_round")

	switch r.URL.Path {
	case "/api/game-data":
		b.fetches++
		if b.failStatus != 0 {
			w.WriteHeader(b.failStatus)
			return
		}
		if !b.generated[round] {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(backendGame))
	case "/api/init-game":
		b.inits++
		b.initPlayers = r.URL.Query().Get("n_player")
		b.generated[round] = true
		_, _ = w.Write([]byte(`{"code": 200, "message": "success"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestLoader(t *testing.T, backend http.Handler) (*Loader, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := NewClient(&ClientConfig{
		BaseURL:   srv.URL + "/",
		Timeout:   5 * time.Second,
		UserAgent: "werewolf-replay/test",
	})
	require.NoError(t, err)

	loader, err := NewLoader(&LoaderConfig{
		Backend:    client,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	return loader, srv
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BaseURL: "http://localhost:9000"})
	assert.NoError(t, err)
}

func TestClientSendsRequestShape(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"players": [], "dialogue": []}`))
	}))
	defer srv.Close()

	client, err := NewClient(&ClientConfig{BaseURL: srv.URL, UserAgent: "werewolf-replay/test"})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "/api/game-data", got.URL.Path)
	assert.Equal(t, "4", got.URL.Query().Get("n_round"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "werewolf-replay/test", got.Header.Get("User-Agent"))

	require.NoError(t, client.Init(context.Background(), 4, 6))
	assert.Equal(t, "/api/init-game", got.URL.Path)
	assert.Equal(t, "6", got.URL.Query().Get("n_player"))
}

func TestLoaderFetchesExistingGame(t *testing.T) {
	backend := newFakeBackend()
	backend.generated["1"] = true
	loader, _ := newTestLoader(t, backend)

	tr, err := loader.Load(context.Background(), Request{Round: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 1, backend.fetches)
	assert.Equal(t, 0, backend.inits)
}

func TestLoaderInitializesAndRetriesOnce(t *testing.T) {
	backend := newFakeBackend()
	loader, _ := newTestLoader(t, backend)

	tr, err := loader.Load(context.Background(), Request{Round: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 2, backend.fetches)
	assert.Equal(t, 1, backend.inits)
	assert.Equal(t, "8", backend.initPlayers)
}

func TestLoaderGivesUpAfterOneRetry(t *testing.T) {
	var fetches, inits atomic.Int32
	loader, _ := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/init-game" {
			inits.Add(1)
			return
		}
		fetches.Add(1)
		http.NotFound(w, r)
	}))

	_, err := loader.Load(context.Background(), Request{Round: 1, Players: 5})

	var failure *LoadFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Request{Round: 1, Players: 5}, failure.Request)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, int32(1), inits.Load())
}

func TestLoaderDoesNotRetryServerErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.failStatus = http.StatusInternalServerError
	loader, _ := newTestLoader(t, backend)

	_, err := loader.Load(context.Background(), Request{Round: 1})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "status", Kind(err))
	assert.Equal(t, 0, backend.inits)
}

func TestLoaderReportsNetworkErrors(t *testing.T) {
	loader, srv := newTestLoader(t, newFakeBackend())
	srv.Close()

	_, err := loader.Load(context.Background(), Request{Round: 1})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "network", Kind(err))
}

func TestLoaderRejectsBadJSON(t *testing.T) {
	loader, _ := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"players": [`))
	}))

	_, err := loader.Load(context.Background(), Request{Round: 1})
	require.Error(t, err)
	assert.Equal(t, "load", Kind(err))
}

type stubBackend struct {
	fetch func(ctx context.Context, round int) (*Transcript, error)
	init  func(ctx context.Context, round, players int) error
}

func (s *stubBackend) Fetch(ctx context.Context, round int) (*Transcript, error) {
	return s.fetch(ctx, round)
}

func (s *stubBackend) Init(ctx context.Context, round, players int) error {
	return s.init(ctx, round, players)
}

func TestLoaderRetryWaitHonorsContext(t *testing.T) {
	loader, err := NewLoader(&LoaderConfig{
		Backend: &stubBackend{
			fetch: func(context.Context, int) (*Transcript, error) { return nil, ErrNotFound },
			init:  func(context.Context, int, int) error { return nil },
		},
		RetryDelay: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = loader.Load(ctx, Request{Round: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})

	loader, err := NewLoader(&LoaderConfig{
		Backend: &stubBackend{
			fetch: func(context.Context, int) (*Transcript, error) {
				fetches.Add(1)
				<-release
				return &Transcript{Dialogue: []DialogueEvent{{Speaker: "Moderator"}}}, nil
			},
			init: func(context.Context, int, int) error { return errors.New("unexpected init") },
		},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan *Transcript, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := loader.Load(context.Background(), Request{Round: 3})
			if err == nil {
				results <- tr
			}
		}()
	}

	// Let both callers join the flight before it lands.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Len(t, results, 2)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestLoaderCancelledCallerLeavesSharedLoadRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetchErr := make(chan error, 1)

	loader, err := NewLoader(&LoaderConfig{
		Backend: &stubBackend{
			fetch: func(ctx context.Context, _ int) (*Transcript, error) {
				close(started)
				<-release
				fetchErr <- ctx.Err()
				return &Transcript{Dialogue: []DialogueEvent{{Speaker: "Moderator"}}}, nil
			},
			init: func(context.Context, int, int) error { return errors.New("unexpected init") },
		},
	})
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctxA, Request{Round: 1, Players: 8})
		errA <- err
	}()
	<-started

	resultB := make(chan error, 1)
	var trB *Transcript
	go func() {
		tr, err := loader.Load(context.Background(), Request{Round: 1, Players: 8})
		trB = tr
		resultB <- err
	}()

	// Let the second caller join the flight before the first walks away.
	time.Sleep(20 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)

	select {
	case err := <-resultB:
		require.NoError(t, err)
		assert.Equal(t, 1, trB.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}

	assert.NoError(t, <-fetchErr)
}
