package authstub_test

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/fintrack/modules/authstub"
	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/svc/authflow"
)

// mailbox collects codes the stub would have emailed.
type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) hook(kind authstub.CodeKind, email, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[string(kind)+":"+email] = code
}

func (m *mailbox) last(t *testing.T, kind authstub.CodeKind, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[string(kind)+":"+email]
	require.True(t, ok, "no %s code for %s", kind, email)
	return code
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	srv    *httptest.Server
	api    *authapi.Client
	mail   *mailbox
	clock  *clock
	store  *session.MemoryStore
	flow   *authflow.Controller
	stub   *authstub.Backend
}

func newEnv(t *testing.T, opts ...authstub.Option) *env {
	t.Helper()
	e := &env{
		mail:  &mailbox{codes: make(map[string]string)},
		clock: &clock{now: time.Now()},
		store: session.NewMemoryStore(),
	}
	opts = append([]authstub.Option{
		authstub.WithBcryptCost(bcrypt.MinCost),
		authstub.WithCodeHook(e.mail.hook),
		authstub.WithClock(e.clock.Now),
	}, opts...)
	e.stub = authstub.New(opts...)
	e.srv = httptest.NewServer(e.stub.Router())
	t.Cleanup(e.srv.Close)

	api, err := authapi.New(e.srv.URL)
	require.NoError(t, err)
	e.api = api
	e.flow = authflow.New(api, e.store)
	return e
}

func httptestServer(t *testing.T, stub *authstub.Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)
	return srv
}
