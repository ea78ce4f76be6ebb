package authstub

import "time"

// Config is the environment form of the stub options.
type Config struct {
	RequireVerification bool          `env:"STUB_REQUIRE_VERIFICATION" envDefault:"true"`
	TokenTTL            time.Duration `env:"STUB_TOKEN_TTL" envDefault:"5m"`
	CodeTTL             time.Duration `env:"STUB_CODE_TTL" envDefault:"15m"`
	Issuer              string        `env:"STUB_ISSUER" envDefault:"FinTrack"`
	RateLimit           int           `env:"STUB_RATE_LIMIT" envDefault:"20"` // attempts per minute per client and endpoint, 0 disables
}

// NewFromConfig creates a Backend from cfg; opts are applied after it.
func NewFromConfig(cfg Config, opts ...Option) *Backend {
	configOpts := []Option{WithRequireVerification(cfg.RequireVerification)}
	if cfg.TokenTTL > 0 {
		configOpts = append(configOpts, WithTempTokenTTL(cfg.TokenTTL))
	}
	if cfg.CodeTTL > 0 {
		configOpts = append(configOpts, WithCodeTTL(cfg.CodeTTL))
	}
	if cfg.Issuer != "" {
		configOpts = append(configOpts, WithIssuer(cfg.Issuer))
	}
	configOpts = append(configOpts, WithRateLimit(cfg.RateLimit, time.Minute))
	return New(append(configOpts, opts...)...)
}
