package authstub

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/httpserver"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/ratelimiter"
	"github.com/dmitrymomot/fintrack/pkg/requestid"
)

const (
	codeDigits       = 6
	backupCodeCount  = 8
	qrSize           = 256
	minPasswordLen   = 6
	defaultIssuer    = "FinTrack"
	defaultTempTTL   = 5 * time.Minute
	defaultCodeTTL   = 15 * time.Minute
	userIDContextKey = ctxKey("userID")
)

type ctxKey string

// Backend is the in-memory auth backend.
type Backend struct {
	store *store
	log   *slog.Logger
	now   func() time.Time

	requireVerification bool
	tempTokenTTL        time.Duration
	codeTTL             time.Duration
	issuer              string
	bcryptCost          int
	onCode              CodeHook
	rateAttempts        int
	rateWindow          time.Duration
	limiter             *ratelimiter.Limiter
}

func New(opts ...Option) *Backend {
	b := &Backend{
		store:               newStore(),
		log:                 logger.Discard(),
		now:                 time.Now,
		requireVerification: true,
		tempTokenTTL:        defaultTempTTL,
		codeTTL:             defaultCodeTTL,
		issuer:              defaultIssuer,
		bcryptCost:          bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(logger.Component("authstub"))

	if b.rateAttempts > 0 && b.rateWindow > 0 {
		l, err := ratelimiter.New(ratelimiter.Config{
			Capacity:       b.rateAttempts,
			RefillRate:     1,
			RefillInterval: max(b.rateWindow/time.Duration(b.rateAttempts), time.Millisecond),
		}, ratelimiter.WithClock(b.now))
		if err != nil {
			b.log.Warn("rate limiting disabled", logger.Error(err))
		}
		b.limiter = l
	}
	return b
}

// Router mounts every endpoint under /api/auth plus /health.
func (b *Backend) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)

	r.Get("/health", httpserver.HealthCheckHandler(b.log))

	r.Route("/api/auth", func(auth chi.Router) {
		auth.Group(func(public chi.Router) {
			if b.limiter != nil {
				public.Use(ratelimiter.Middleware(b.limiter, ratelimiter.ByIPAndPath, b.tooManyRequests))
			}
			public.Post("/register", b.handleRegister)
			public.Post("/login", b.handleLogin)
			public.Post("/verify-email", b.handleVerifyEmail)
			public.Post("/resend-verification", b.handleResendVerification)
			public.Post("/2fa/validate", b.handleValidateTwoFactor)
			public.Post("/forgot-password", b.handleForgotPassword)
			public.Post("/reset-password", b.handleResetPassword)
			public.Post("/oauth/{provider}", b.handleOAuth)
		})

		auth.Group(func(private chi.Router) {
			private.Use(b.requireToken)
			private.Post("/change-password", b.handleChangePassword)
			private.Delete("/delete-account/{userID}", b.handleDeleteAccount)
			private.Post("/enable-2fa/{userID}", b.handleEnableTwoFactor)
		})
	})

	return r
}

func (b *Backend) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	b.log.WarnContext(r.Context(), "rate limited", slog.String("path", r.URL.Path))
	b.writeError(w, r, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
}

// requireToken resolves the bearer token to a user id.
func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			b.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		b.store.mu.Lock()
		id, found := b.store.sessions[token]
		b.store.mu.Unlock()
		if !found {
			b.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDContextKey, id)))
	})
}

func callerID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDContextKey).(int64)
	return id
}

// issueSession must be called with b.store.mu held.
func (b *Backend) issueSession(u *user) authapi.AuthResult {
	token := uuid.NewString()
	b.store.sessions[token] = u.ID
	return authapi.AuthResult{
		Token:          token,
		UserID:         u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.Picture,
	}
}

// issueCode must be called with b.store.mu held. The hook runs after the
// caller unlocks, via the returned func.
func (b *Backend) issueCode(codes map[string]code, kind CodeKind, email string) (func(), error) {
	value, err := randomDigits(codeDigits)
	if err != nil {
		return nil, err
	}
	codes[email] = code{value: value, expires: b.now().Add(b.codeTTL)}
	return func() {
		if b.onCode != nil {
			b.onCode(kind, email, value)
		}
	}, nil
}

func (b *Backend) hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), b.bcryptCost)
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("authstub: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
