package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session in a Redis hash named "<namespace>:session".
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithNamespace sets the hash key prefix. Empty values are ignored.
func WithNamespace(ns string) RedisOption {
	return func(s *RedisStore) {
		if ns != "" {
			s.key = ns + ":session"
		}
	}
}

// WithTTL expires the stored session after d. Zero keeps it until Clear.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultNamespace + ":session"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding the session hash.
func (r *RedisStore) Key() string { return r.key }

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	m, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Session{}, errors.Join(ErrReadFailed, err)
	}
	return load(m)
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if !IsKnownKey(key) {
		return "", lookupMissing(key)
	}
	v, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrReadFailed, err)
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	entries := s.Entries()
	values := make([]any, 0, len(entries)*2)
	for k, v := range entries {
		values = append(values, k, v)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, values...)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}
