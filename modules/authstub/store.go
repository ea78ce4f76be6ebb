package authstub

import (
	"sync"
	"time"
)

type user struct {
	ID       int64
	Name     string
	Email    string
	Hash     []byte
	Verified bool
	Picture  string
	OAuth    map[string]string

	TOTPSecret  string
	BackupCodes []string // hashed
}

func (u *user) twoFactor() bool { return u.TOTPSecret != "" }

type code struct {
	value   string
	expires time.Time
}

type tempToken struct {
	userID  int64
	expires time.Time
}

// store holds all stub state behind one mutex.
type store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*user
	byEmail  map[string]int64
	verify   map[string]code
	reset    map[string]code
	temp     map[string]tempToken
	sessions map[string]int64
}

func newStore() *store {
	return &store{
		users:    make(map[int64]*user),
		byEmail:  make(map[string]int64),
		verify:   make(map[string]code),
		reset:    make(map[string]code),
		temp:     make(map[string]tempToken),
		sessions: make(map[string]int64),
	}
}

// must be called with s.mu held
func (s *store) userByEmail(email string) (*user, bool) {
	id, ok := s.byEmail[email]
	if !ok {
		return nil, false
	}
	return s.users[id], true
}

// must be called with s.mu held
func (s *store) userByOAuth(provider, oauthID string) (*user, bool) {
	for _, u := range s.users {
		if u.OAuth[provider] == oauthID {
			return u, true
		}
	}
	return nil, false
}

// must be called with s.mu held
func (s *store) insert(u *user) *user {
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u
}

// must be called with s.mu held
func (s *store) remove(id int64) {
	u, ok := s.users[id]
	if !ok {
		return
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	delete(s.verify, u.Email)
	delete(s.reset, u.Email)
	for tok, uid := range s.sessions {
		if uid == id {
			delete(s.sessions, tok)
		}
	}
	for tok, t := range s.temp {
		if t.userID == id {
			delete(s.temp, tok)
		}
	}
}

// takeCode consumes a matching unexpired code. Must be called with s.mu held.
func takeCode(codes map[string]code, email, value string, now time.Time) bool {
	c, ok := codes[email]
	if !ok || now.After(c.expires) || c.value != value {
		return false
	}
	delete(codes, email)
	return true
}
