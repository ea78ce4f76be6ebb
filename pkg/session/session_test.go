package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fintrack/pkg/session"
)

func validSession() session.Session {
	return session.Session{
		Token:          "tok-1",
		UserID:         42,
		Name:           "Alice",
		Email:          "alice@example.com",
		ProfilePicture: "https://example.com/a.png",
	}
}

func TestSession_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validSession().Validate())

	noPicture := validSession()
	noPicture.ProfilePicture = ""
	require.NoError(t, noPicture.Validate(), "profile picture is optional")

	tests := []struct {
		name   string
		mutate func(*session.Session)
		key    string
	}{
		{"missing token", func(s *session.Session) { s.Token = "" }, session.KeyToken},
		{"missing user id", func(s *session.Session) { s.UserID = 0 }, session.KeyUserID},
		{"blank name", func(s *session.Session) { s.Name = "  " }, session.KeyUserName},
		{"missing email", func(s *session.Session) { s.Email = "" }, session.KeyUserEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSession()
			tt.mutate(&s)
			err := s.Validate()
			require.ErrorIs(t, err, session.ErrIncomplete)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestSession_Entries(t *testing.T) {
	t.Parallel()

	s := validSession()
	m := s.Entries()
	assert.Equal(t, map[string]string{
		"authToken":      "tok-1",
		"userId":         "42",
		"userName":       "Alice",
		"userEmail":      "alice@example.com",
		"profilePicture": "https://example.com/a.png",
	}, m)

	back, err := session.FromEntries(m)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	s.ProfilePicture = ""
	assert.NotContains(t, s.Entries(), session.KeyProfilePicture)
}

func TestFromEntries_Errors(t *testing.T) {
	t.Parallel()

	_, err := session.FromEntries(nil)
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = session.FromEntries(map[string]string{session.KeyUserID: "abc"})
	assert.ErrorIs(t, err, session.ErrCorrupted)
}
