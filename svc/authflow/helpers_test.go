package authflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/svc/authflow"
)

// countingStore counts writes on top of a real store.
type countingStore struct {
	session.Store
	saves  atomic.Int32
	clears atomic.Int32
	failOn error
}

func (s *countingStore) Save(ctx context.Context, sess session.Session) error {
	s.saves.Add(1)
	if s.failOn != nil {
		return s.failOn
	}
	return s.Store.Save(ctx, sess)
}

func (s *countingStore) Clear(ctx context.Context) error {
	s.clears.Add(1)
	return s.Store.Clear(ctx)
}

// backend is an httptest server with per-route handlers and request capture.
type backend struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests map[string]int
	bodies   map[string]map[string]any
	headers  map[string]http.Header
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		t:        t,
		mux:      http.NewServeMux(),
		routes:   make(map[string]http.HandlerFunc),
		requests: make(map[string]int),
		bodies:   make(map[string]map[string]any),
		headers:  make(map[string]http.Header),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		b.mu.Lock()
		b.requests[r.URL.Path]++
		b.bodies[r.URL.Path] = body
		b.headers[r.URL.Path] = r.Header.Clone()
		b.mu.Unlock()

		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

// handle sets the handler for pattern, replacing any earlier one.
func (b *backend) handle(pattern string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.routes[pattern]; !ok {
		b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			route := b.routes[pattern]
			b.mu.Unlock()
			route(w, r)
		})
	}
	b.routes[pattern] = h
}

func (b *backend) reply(pattern string, status int, body string) {
	b.handle(pattern, reply(status, body))
}

func (b *backend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[path]
}

func (b *backend) body(path string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func (b *backend) header(path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[path]
}

func (b *backend) client() *authapi.Client {
	c, err := authapi.New(b.srv.URL)
	require.NoError(b.t, err)
	return c
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type fixture struct {
	flow    *authflow.Controller
	backend *backend
	store   *countingStore
	mem     *session.MemoryStore

	mu          sync.Mutex
	transitions []authflow.Transition
}

func newFixture(t *testing.T, opts ...authflow.Option) *fixture {
	t.Helper()
	f := &fixture{backend: newBackend(t), mem: session.NewMemoryStore()}
	f.store = &countingStore{Store: f.mem}
	opts = append(opts, authflow.WithObserver(func(tr authflow.Transition) {
		f.mu.Lock()
		f.transitions = append(f.transitions, tr)
		f.mu.Unlock()
	}))
	f.flow = authflow.New(f.backend.client(), f.store, opts...)
	return f
}

func (f *fixture) visited(s authflow.State) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range f.transitions {
		if tr.To == s {
			return true
		}
	}
	return false
}

// loginAsAlice signs the fixture in through the login endpoint.
func (f *fixture) loginAsAlice(t *testing.T) {
	t.Helper()
	f.backend.reply("POST /api/auth/login", http.StatusOK,
		`{"token":"t1","userId":1,"name":"Alice","email":"alice@example.com"}`)
	res, err := f.flow.SubmitLogin(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, authflow.StateAuthenticated, res.State)
}

var errDiskFull = errors.New("disk full")
