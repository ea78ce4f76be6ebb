package authflow_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/pkg/validator"
	"github.com/dmitrymomot/fintrack/svc/authflow"
)

func TestSubmitLogin_Success(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusOK,
		`{"token":"t1","userId":1,"name":"A","email":"a@b.com","profilePicture":"https://img/a.png"}`)

	res, err := f.flow.SubmitLogin(context.Background(), " A@B.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateAuthenticated, res.State)
	assert.Equal(t, authflow.StateAuthenticated, f.flow.State())
	require.NotNil(t, res.Session)
	assert.Equal(t, "t1", res.Session.Token)

	assert.Equal(t, map[string]any{"email": "a@b.com", "password": "secret"}, f.backend.body("/api/auth/login"))
	assert.EqualValues(t, 1, f.store.saves.Load())

	want := map[string]string{
		session.KeyToken:          "t1",
		session.KeyUserID:         "1",
		session.KeyUserName:       "A",
		session.KeyUserEmail:      "a@b.com",
		session.KeyProfilePicture: "https://img/a.png",
	}
	for key, value := range want {
		got, err := f.mem.Get(context.Background(), key)
		require.NoError(t, err, key)
		assert.Equal(t, value, got, key)
	}
}

func TestSubmitLogin_WithoutPicture(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.mem.Set(session.KeyProfilePicture, "https://img/stale.png")
	f.backend.reply("POST /api/auth/login", http.StatusOK,
		`{"token":"t1","userId":1,"name":"A","email":"a@b.com"}`)

	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	_, err = f.mem.Get(context.Background(), session.KeyProfilePicture)
	assert.ErrorIs(t, err, session.ErrNotFound, "a stale picture does not survive a new session")
}

func TestSubmitLogin_UnverifiedAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden,
		`{"requiresVerification":true,"email":"canonical@example.com","error":"Email not verified"}`)

	res, err := f.flow.SubmitLogin(context.Background(), "Alias@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateNeedsVerification, res.State)
	assert.Equal(t, "canonical@example.com", res.Email, "the server's email wins")
	assert.Zero(t, f.store.saves.Load())

	snap := f.flow.Snapshot()
	assert.Equal(t, authflow.StateNeedsVerification, snap.State)
	assert.Equal(t, "canonical@example.com", snap.Email)
	assert.Nil(t, snap.Session)
}

func TestSubmitLogin_ForbiddenWithoutVerificationFlag(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden, `{"error":"Account disabled"}`)

	res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.Error(t, err)
	assert.Equal(t, authflow.StateFailed, res.State)
	assert.Equal(t, authflow.StateIdle, res.Resume)
	assert.Equal(t, "Account disabled", res.Message)
}

func TestSubmitLogin_VerificationFlagNeedsForbidden(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.backend.reply("POST /api/auth/login", status,
				`{"requiresVerification":true,"email":"x@example.com","error":"nope"}`)

			res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
			require.ErrorIs(t, err, authapi.ErrApplication)
			assert.Equal(t, authflow.StateFailed, res.State)
			assert.Equal(t, authflow.StateIdle, res.Resume)
			assert.Equal(t, "nope", res.Message)
			assert.Equal(t, authflow.StateIdle, f.flow.State())
			assert.False(t, f.visited(authflow.StateNeedsVerification))
		})
	}
}

func TestSubmitLogin_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    error
	}{
		{"error field", http.StatusUnauthorized, `{"error":"Invalid credentials"}`, "Invalid credentials", authapi.ErrApplication},
		{"message field", http.StatusTooManyRequests, `{"message":"Slow down"}`, "Slow down", authapi.ErrApplication},
		{"no message", http.StatusInternalServerError, `{}`, "Login failed", authapi.ErrApplication},
		{"malformed success", http.StatusOK, `{"token":`, "Login failed. Please try again.", authapi.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.backend.reply("POST /api/auth/login", tt.status, tt.body)

			res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, authflow.StateFailed, res.State)
			assert.Equal(t, authflow.StateIdle, res.Resume)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.message, authflow.Message(err))

			assert.Equal(t, authflow.StateIdle, f.flow.State())
			assert.True(t, f.visited(authflow.StateFailed))
			assert.Zero(t, f.store.saves.Load())
			assert.Equal(t, tt.message, f.flow.Snapshot().LastError)
		})
	}
}

func TestSubmitLogin_NetworkFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.srv.Close()

	res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.ErrorIs(t, err, authapi.ErrNetwork)
	assert.Equal(t, "Login failed. Please try again.", res.Message)
	assert.Equal(t, authflow.StateIdle, f.flow.State())
}

func TestSubmitLogin_IncompleteSessionFailsClosed(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"missing token":   `{"userId":1,"name":"A","email":"a@b.com"}`,
		"missing user id": `{"token":"t1","name":"A","email":"a@b.com"}`,
		"missing name":    `{"token":"t1","userId":1,"email":"a@b.com"}`,
		"missing email":   `{"token":"t1","userId":1,"name":"A"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.backend.reply("POST /api/auth/login", http.StatusOK, body)

			res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
			require.ErrorIs(t, err, authflow.ErrIncompleteSession)
			assert.Equal(t, authflow.StateFailed, res.State)
			assert.Equal(t, authflow.StateIdle, f.flow.State())
			assert.Zero(t, f.store.saves.Load())

			_, err = f.mem.Load(context.Background())
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestSubmitLogin_StoreFailureFailsClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.failOn = errDiskFull
	f.backend.reply("POST /api/auth/login", http.StatusOK,
		`{"token":"t1","userId":1,"name":"A","email":"a@b.com"}`)

	res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, authflow.StateFailed, res.State)
	assert.Equal(t, authflow.StateIdle, f.flow.State())
	assert.Nil(t, f.flow.Session())
}

func TestSubmitLogin_ValidationBlocksRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusOK, `{}`)

	res, err := f.flow.SubmitLogin(context.Background(), "not-an-email", "")
	require.ErrorIs(t, err, validator.ErrValidationFailed)
	ve := validator.ExtractValidationErrors(err)
	assert.True(t, ve.Has("email"))
	assert.True(t, ve.Has("password"))

	assert.Equal(t, authflow.StateIdle, res.State)
	assert.Zero(t, f.backend.count("/api/auth/login"))
	assert.False(t, f.visited(authflow.StateSubmitting))
}

func TestSubmitLogin_OnlyFromIdle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.loginAsAlice(t)

	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, authflow.ErrInvalidState)
	assert.Equal(t, 1, f.backend.count("/api/auth/login"))
}

func TestVerification_WrongThenRight(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden,
		`{"requiresVerification":true,"email":"a@b.com"}`)
	var attempts atomic.Int32
	f.backend.handle("POST /api/auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			reply(http.StatusBadRequest, `{"error":"Invalid or expired OTP"}`)(w, r)
			return
		}
		reply(http.StatusOK, `{"token":"t9","userId":9,"name":"A","email":"a@b.com"}`)(w, r)
	})

	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	res, err := f.flow.SubmitVerification(context.Background(), "111111")
	require.ErrorIs(t, err, authapi.ErrApplication)
	assert.Equal(t, authflow.StateFailed, res.State)
	assert.Equal(t, authflow.StateNeedsVerification, res.Resume)
	assert.Equal(t, "Invalid or expired OTP", res.Message)
	assert.Equal(t, authflow.StateNeedsVerification, f.flow.State())
	assert.Zero(t, f.store.saves.Load())

	res, err = f.flow.SubmitVerification(context.Background(), "123 456")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateAuthenticated, res.State)
	assert.Equal(t, map[string]any{"email": "a@b.com", "otp": "123456"}, f.backend.body("/api/auth/verify-email"))
	assert.EqualValues(t, 1, f.store.saves.Load())
	assert.Empty(t, f.flow.Snapshot().Email, "pending step is discarded on success")
}

func TestVerification_GenericMessages(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden, `{"requiresVerification":true,"email":"a@b.com"}`)
	f.backend.reply("POST /api/auth/verify-email", http.StatusBadRequest, `{}`)

	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	res, err := f.flow.SubmitVerification(context.Background(), "000000")
	require.Error(t, err)
	assert.Equal(t, "Invalid verification code", res.Message)
}

func TestVerification_RejectsBadCodeLocally(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden, `{"requiresVerification":true,"email":"a@b.com"}`)
	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	for _, otp := range []string{"", "1234567", "12a456"} {
		_, err := f.flow.SubmitVerification(context.Background(), otp)
		assert.ErrorIs(t, err, validator.ErrValidationFailed, otp)
	}
	assert.Zero(t, f.backend.count("/api/auth/verify-email"))
	assert.Equal(t, authflow.StateNeedsVerification, f.flow.State())
}

func TestVerification_OnlyWhenPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.flow.SubmitVerification(context.Background(), "123456")
	assert.ErrorIs(t, err, authflow.ErrInvalidState)
	assert.ErrorIs(t, f.flow.ResendVerificationCode(context.Background()), authflow.ErrInvalidState)
	_, err = f.flow.SubmitTwoFactor(context.Background(), "123456")
	assert.ErrorIs(t, err, authflow.ErrInvalidState)
}

func TestResendVerificationCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden, `{"requiresVerification":true,"email":"a@b.com"}`)
	f.backend.reply("POST /api/auth/resend-verification", http.StatusOK, ``)
	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	require.NoError(t, f.flow.ResendVerificationCode(context.Background()))
	assert.Equal(t, map[string]any{"email": "a@b.com"}, f.backend.body("/api/auth/resend-verification"))
	assert.Equal(t, authflow.StateNeedsVerification, f.flow.State())
}

func TestResendVerificationCode_FailureKeepsStep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusForbidden, `{"requiresVerification":true,"email":"a@b.com"}`)
	f.backend.reply("POST /api/auth/resend-verification", http.StatusServiceUnavailable, `{}`)
	f.backend.reply("POST /api/auth/verify-email", http.StatusOK, `{"token":"t","userId":2,"name":"A","email":"a@b.com"}`)
	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	err = f.flow.ResendVerificationCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to resend code", authflow.Message(err))
	assert.Equal(t, authflow.StateNeedsVerification, f.flow.State())

	res, err := f.flow.SubmitVerification(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateAuthenticated, res.State)
}

func TestTwoFactor_NoSessionUntilValidated(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusOK, `{"requires2FA":true,"tempToken":"tmp-42"}`)
	var attempts atomic.Int32
	f.backend.handle("POST /api/auth/2fa/validate", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			reply(http.StatusUnauthorized, `{}`)(w, r)
			return
		}
		reply(http.StatusOK, `{"token":"t2","userId":2,"name":"B","email":"b@b.com"}`)(w, r)
	})

	res, err := f.flow.SubmitLogin(context.Background(), "b@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateNeedsTwoFactor, res.State)
	assert.True(t, f.flow.Snapshot().HasTempToken)
	assert.Zero(t, f.store.saves.Load())

	res, err = f.flow.SubmitTwoFactor(context.Background(), "000000")
	require.Error(t, err)
	assert.Equal(t, "Invalid 2FA code", res.Message)
	assert.Equal(t, authflow.StateNeedsTwoFactor, res.Resume)
	assert.Zero(t, f.store.saves.Load())

	res, err = f.flow.SubmitTwoFactor(context.Background(), "123-456")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateAuthenticated, res.State)
	assert.Equal(t, map[string]any{"tempToken": "tmp-42", "code": float64(123456)}, f.backend.body("/api/auth/2fa/validate"))
	assert.EqualValues(t, 1, f.store.saves.Load())
	assert.False(t, f.flow.Snapshot().HasTempToken)
}

func TestTwoFactor_MissingTempToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusOK, `{"requires2FA":true}`)

	res, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.ErrorIs(t, err, authflow.ErrMissingTempToken)
	assert.Equal(t, authflow.StateIdle, res.Resume)
}

func TestTwoFactor_CodeValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/login", http.StatusOK, `{"requires2FA":true,"tempToken":"tmp"}`)
	_, err := f.flow.SubmitLogin(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	for _, code := range []string{"", "123456789", "abcdef"} {
		_, err := f.flow.SubmitTwoFactor(context.Background(), code)
		assert.ErrorIs(t, err, validator.ErrValidationFailed, code)
	}
	assert.Zero(t, f.backend.count("/api/auth/2fa/validate"))
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/register", http.StatusCreated, `{"email":"new@example.com"}`)

	res, err := f.flow.Register(context.Background(), authflow.RegisterInput{
		Name:            " New User ",
		Email:           "New@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		AcceptTerms:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, authflow.StateNeedsVerification, res.State)
	assert.Equal(t, "new@example.com", res.Email)
	assert.Equal(t, map[string]any{"name": "New User", "email": "new@example.com", "password": "secret1"},
		f.backend.body("/api/auth/register"))
	assert.Zero(t, f.store.saves.Load())
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      authflow.RegisterInput
		field   string
		message string
	}{
		{"mismatch", authflow.RegisterInput{Name: "A", Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret2", AcceptTerms: true},
			"confirmPassword", "Passwords do not match"},
		{"terms", authflow.RegisterInput{Name: "A", Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret1"},
			"acceptTerms", "You must agree to the Terms of Service"},
		{"short password", authflow.RegisterInput{Name: "A", Email: "a@b.com", Password: "abc", ConfirmPassword: "abc", AcceptTerms: true},
			"password", "must be at least 6 characters long"},
		{"no name", authflow.RegisterInput{Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret1", AcceptTerms: true},
			"name", "field is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.backend.reply("POST /api/auth/register", http.StatusCreated, `{}`)

			_, err := f.flow.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, validator.ErrValidationFailed)
			ve := validator.ExtractValidationErrors(err)
			assert.Equal(t, []string{tt.message}, ve.Get(tt.field))
			assert.Equal(t, tt.message, authflow.Message(err))
			assert.Zero(t, f.backend.count("/api/auth/register"))
			assert.Equal(t, authflow.StateIdle, f.flow.State())
		})
	}
}

func TestRegister_ServerRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.reply("POST /api/auth/register", http.StatusConflict, `{"error":"Email already registered"}`)

	res, err := f.flow.Register(context.Background(), authflow.RegisterInput{
		Name: "A", Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret1", AcceptTerms: true,
	})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", res.Message)
	assert.Equal(t, authflow.StateIdle, f.flow.State())
}
