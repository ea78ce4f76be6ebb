// Package redis connects to a Redis server with retries and exposes a
// readiness probe.
//
// The session package uses the returned client as the backing store for
// SESSION_BACKEND=redis:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	store := session.NewRedisStore(client, session.WithNamespace("fintrack"))
//
// Errors returned by Connect wrap ErrNotReady or ErrInvalidURL together with
// the driver error.
package redis
