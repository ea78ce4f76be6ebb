// Package session defines the persisted authenticated identity and the
// stores that hold it between runs.
//
// A Session is five values: auth token, numeric user id, display name, email
// and an optional profile picture URL. Stores expose them both as a whole
// (Load, Save) and by key (Get) under the names authToken, userId, userName,
// userEmail and profilePicture.
//
// Three stores are provided:
//
//   - MemoryStore for tests and one-shot processes.
//   - FileStore, a 0600 YAML file written atomically.
//   - RedisStore, a hash under "<namespace>:session".
//
// NewStore picks one from Config:
//
//	store, err := session.NewStore(cfg, redisClient)
//
// Every Save validates the session first; an incomplete session is rejected
// with ErrIncomplete and nothing is written.
package session
