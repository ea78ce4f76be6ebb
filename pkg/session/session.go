package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Storage keys. They match the keys the web dashboard keeps in local storage
// so a session written by one client can be read by another.
const (
	KeyToken          = "authToken"
	KeyUserID         = "userId"
	KeyUserName       = "userName"
	KeyUserEmail      = "userEmail"
	KeyProfilePicture = "profilePicture"
)

// Keys lists every key a Store may hold.
var Keys = []string{KeyToken, KeyUserID, KeyUserName, KeyUserEmail, KeyProfilePicture}

// Session is the authenticated identity persisted after a successful login.
type Session struct {
	Token          string `json:"authToken" yaml:"authToken"`
	UserID         int64  `json:"userId" yaml:"userId"`
	Name           string `json:"userName" yaml:"userName"`
	Email          string `json:"userEmail" yaml:"userEmail"`
	ProfilePicture string `json:"profilePicture,omitempty" yaml:"profilePicture,omitempty"`
}

// IsZero reports whether s holds no data at all.
func (s Session) IsZero() bool {
	return s == Session{}
}

// Validate returns ErrIncomplete joined with a description of every missing
// field. A profile picture is optional.
func (s Session) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Token) == "" {
		missing = append(missing, KeyToken)
	}
	if s.UserID <= 0 {
		missing = append(missing, KeyUserID)
	}
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, KeyUserName)
	}
	if strings.TrimSpace(s.Email) == "" {
		missing = append(missing, KeyUserEmail)
	}
	if len(missing) > 0 {
		return errors.Join(ErrIncomplete, fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Entries flattens s into storage key/value pairs. The profile picture is
// present only when set.
func (s Session) Entries() map[string]string {
	m := map[string]string{
		KeyToken:     s.Token,
		KeyUserID:    strconv.FormatInt(s.UserID, 10),
		KeyUserName:  s.Name,
		KeyUserEmail: s.Email,
	}
	if s.ProfilePicture != "" {
		m[KeyProfilePicture] = s.ProfilePicture
	}
	return m
}

// FromEntries is the inverse of Entries. An empty map yields ErrNotFound.
// A user id that is not an integer yields ErrCorrupted.
func FromEntries(m map[string]string) (Session, error) {
	if len(m) == 0 {
		return Session{}, ErrNotFound
	}
	s := Session{
		Token:          m[KeyToken],
		Name:           m[KeyUserName],
		Email:          m[KeyUserEmail],
		ProfilePicture: m[KeyProfilePicture],
	}
	if raw := m[KeyUserID]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Session{}, errors.Join(ErrCorrupted, err)
		}
		s.UserID = id
	}
	return s, nil
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// lookup implements Store.Get on top of a full snapshot.
func lookup(m map[string]string, key string) (string, error) {
	if !IsKnownKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	v, ok := m[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// load implements Store.Load on top of a full snapshot.
func load(m map[string]string) (Session, error) {
	s, err := FromEntries(m)
	if err != nil {
		return Session{}, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
