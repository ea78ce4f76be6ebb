package authstub

import (
	"log/slog"
	"time"
)

// CodeKind tells a code hook what an emailed code is for.
type CodeKind string

const (
	CodeVerification  CodeKind = "verification"
	CodePasswordReset CodeKind = "password_reset"
)

// CodeHook receives every code the stub would have emailed.
type CodeHook func(kind CodeKind, email, code string)

type Option func(*Backend)

// WithRequireVerification makes new password accounts verify their email
// before they can sign in. On by default.
func WithRequireVerification(on bool) Option {
	return func(b *Backend) {
		b.requireVerification = on
	}
}

// WithTempTokenTTL sets how long a 2FA temp token stays valid.
func WithTempTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tempTokenTTL = ttl
	}
}

// WithCodeTTL sets how long verification and reset codes stay valid.
func WithCodeTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.codeTTL = ttl
	}
}

func WithIssuer(issuer string) Option {
	return func(b *Backend) {
		b.issuer = issuer
	}
}

func WithCodeHook(fn CodeHook) Option {
	return func(b *Backend) {
		b.onCode = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// WithBcryptCost lowers the hashing cost, mostly for tests.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) {
		b.bcryptCost = cost
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRateLimit allows attempts requests per window to each public endpoint
// from one client address. Zero disables the limit.
func WithRateLimit(attempts int, window time.Duration) Option {
	return func(b *Backend) {
		b.rateAttempts = attempts
		b.rateWindow = window
	}
}
