package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by SESSION_BACKEND.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const DefaultNamespace = "fintrack"

// Config selects and configures a Store.
type Config struct {
	Backend   string        `env:"SESSION_BACKEND" envDefault:"file"`
	File      string        `env:"SESSION_FILE"` // empty means DefaultFilePath()
	Namespace string        `env:"SESSION_NAMESPACE" envDefault:"fintrack"`
	TTL       time.Duration `env:"SESSION_TTL" envDefault:"0s"`
}

// DefaultFilePath returns <user config dir>/fintrack/session.yaml, falling
// back to the working directory when the config dir cannot be determined.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".fintrack", "session.yaml")
	}
	return filepath.Join(dir, "fintrack", "session.yaml")
}

// NewStore builds the Store named by cfg.Backend. client is used only by the
// redis backend and may be nil otherwise.
func NewStore(cfg Config, client redis.UniversalClient) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		path := cfg.File
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFileStore(path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if client == nil {
			return nil, ErrNoRedisClient
		}
		return NewRedisStore(client, WithNamespace(cfg.Namespace), WithTTL(cfg.TTL)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
