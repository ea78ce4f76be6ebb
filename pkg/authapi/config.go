package authapi

import "time"

// Config is the environment form of the client settings.
type Config struct {
	URL     string        `env:"API_URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig creates a Client from cfg; opts are applied afterwards.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	configOpts := make([]Option, 0, 1+len(opts))
	if cfg.Timeout > 0 {
		configOpts = append(configOpts, WithTimeout(cfg.Timeout))
	}
	return New(cfg.URL, append(configOpts, opts...)...)
}
