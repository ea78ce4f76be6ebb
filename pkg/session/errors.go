package session

import "errors"

var (
	ErrNotFound       = errors.New("session.not_found")
	ErrIncomplete     = errors.New("session.incomplete")
	ErrCorrupted      = errors.New("session.corrupted")
	ErrUnknownKey     = errors.New("session.unknown_key")
	ErrReadFailed     = errors.New("session.read_failed")
	ErrWriteFailed    = errors.New("session.write_failed")
	ErrUnknownBackend = errors.New("session.unknown_backend")
	ErrNoRedisClient  = errors.New("session.no_redis_client")
)
