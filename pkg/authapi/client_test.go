package authapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/requestid"
)

type recorded struct {
	method  string
	path    string
	header  http.Header
	payload map[string]any
}

// newBackend returns a client bound to a server that records the last
// request and answers with status and body.
func newBackend(t *testing.T, status int, body string) (*authapi.Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := authapi.New(srv.URL)
	require.NoError(t, err)
	return client, rec
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "localhost:8080", "ftp://host", "http://"} {
		_, err := authapi.New(raw)
		assert.ErrorIs(t, err, authapi.ErrInvalidBaseURL, raw)
	}

	c, err := authapi.NewFromConfig(authapi.Config{URL: "http://localhost:8080/", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	client, rec := newBackend(t, http.StatusOK,
		`{"token":"t1","userId":7,"name":"Alice","email":"alice@example.com","profilePicture":"p.png"}`)

	ctx := requestid.WithContext(context.Background(), "req-123")
	res, err := client.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/auth/login", rec.path)
	assert.Equal(t, "application/json", rec.header.Get("Content-Type"))
	assert.Equal(t, "req-123", rec.header.Get(requestid.Header))
	assert.Empty(t, rec.header.Get("Authorization"))
	assert.Equal(t, map[string]any{"email": "alice@example.com", "password": "secret"}, rec.payload)

	s := res.Session()
	assert.Equal(t, "t1", s.Token)
	assert.Equal(t, int64(7), s.UserID)
	assert.Equal(t, "p.png", s.ProfilePicture)
	assert.False(t, res.Requires2FA)
}

func TestLogin_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	client, rec := newBackend(t, http.StatusOK, `{}`)
	_, err := client.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Len(t, rec.header.Get(requestid.Header), 36)
}

func TestLogin_Requires2FA(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusOK, `{"requires2FA":true,"tempToken":"tmp-1"}`)
	res, err := client.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.True(t, res.Requires2FA)
	assert.Equal(t, "tmp-1", res.TempToken)
}

func TestLogin_RequiresVerification(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusForbidden,
		`{"requiresVerification":true,"email":"server@example.com","error":"Email not verified"}`)
	_, err := client.Login(context.Background(), "typed@example.com", "x")

	require.ErrorIs(t, err, authapi.ErrApplication)
	apiErr, ok := authapi.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.True(t, apiErr.RequiresVerification)
	assert.Equal(t, "server@example.com", apiErr.Email)
	assert.Equal(t, "Email not verified", apiErr.Message)
}

func TestAPIError_MessageFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"Invalid credentials"}`, "Invalid credentials"},
		{"message field", `{"message":"Account locked"}`, "Account locked"},
		{"error wins", `{"error":"A","message":"B"}`, "A"},
		{"no message", `{}`, "fallback"},
		{"not json", `<html>bad gateway</html>`, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, _ := newBackend(t, http.StatusUnauthorized, tt.body)
			_, err := client.Login(context.Background(), "a@b.com", "x")
			require.ErrorIs(t, err, authapi.ErrApplication)
			assert.False(t, authapi.IsNetwork(err))
			assert.Equal(t, tt.want, authapi.ServerMessage(err, "fallback"))
		})
	}
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := authapi.New(url)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, authapi.ErrNetwork)
	assert.True(t, authapi.IsNetwork(err))
	assert.Equal(t, "fallback", authapi.ServerMessage(err, "fallback"))

	var netErr *authapi.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "login", netErr.Op)
}

func TestNetworkError_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := authapi.New(srv.URL, authapi.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, authapi.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMalformedSuccessBody(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusOK, `{"token":`)
	_, err := client.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, authapi.ErrNetwork)
	assert.ErrorIs(t, err, authapi.ErrMalformedResponse)
}

func TestRequestShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		call    func(*authapi.Client) error
		method  string
		path    string
		payload map[string]any
		auth    string
	}{
		{
			name: "register",
			call: func(c *authapi.Client) error {
				_, err := c.Register(context.Background(), authapi.RegisterRequest{Name: "A", Email: "a@b.com", Password: "secret1"})
				return err
			},
			method:  http.MethodPost,
			path:    "/api/auth/register",
			payload: map[string]any{"name": "A", "email": "a@b.com", "password": "secret1"},
		},
		{
			name: "verify email",
			call: func(c *authapi.Client) error {
				_, err := c.VerifyEmail(context.Background(), "a@b.com", "123456")
				return err
			},
			method:  http.MethodPost,
			path:    "/api/auth/verify-email",
			payload: map[string]any{"email": "a@b.com", "otp": "123456"},
		},
		{
			name:    "resend verification",
			call:    func(c *authapi.Client) error { return c.ResendVerification(context.Background(), "a@b.com") },
			method:  http.MethodPost,
			path:    "/api/auth/resend-verification",
			payload: map[string]any{"email": "a@b.com"},
		},
		{
			name: "2fa validate sends numeric code",
			call: func(c *authapi.Client) error {
				_, err := c.ValidateTwoFactor(context.Background(), "tmp", 123456)
				return err
			},
			method:  http.MethodPost,
			path:    "/api/auth/2fa/validate",
			payload: map[string]any{"tempToken": "tmp", "code": float64(123456)},
		},
		{
			name:    "forgot password",
			call:    func(c *authapi.Client) error { return c.ForgotPassword(context.Background(), "a@b.com") },
			method:  http.MethodPost,
			path:    "/api/auth/forgot-password",
			payload: map[string]any{"email": "a@b.com"},
		},
		{
			name:    "reset password",
			call:    func(c *authapi.Client) error { return c.ResetPassword(context.Background(), "a@b.com", "654321", "newpass") },
			method:  http.MethodPost,
			path:    "/api/auth/reset-password",
			payload: map[string]any{"email": "a@b.com", "otp": "654321", "newPassword": "newpass"},
		},
		{
			name: "oauth apple",
			call: func(c *authapi.Client) error {
				_, err := c.OAuth(context.Background(), authapi.ProviderApple, authapi.OAuthProfile{OAuthID: "sub", Email: "a@b.com", Name: "Apple User"})
				return err
			},
			method:  http.MethodPost,
			path:    "/api/auth/oauth/apple",
			payload: map[string]any{"oauthId": "sub", "email": "a@b.com", "name": "Apple User"},
		},
		{
			name:    "change password",
			call:    func(c *authapi.Client) error { return c.ChangePassword(context.Background(), "tok", 9, "old", "new") },
			method:  http.MethodPost,
			path:    "/api/auth/change-password",
			payload: map[string]any{"userId": float64(9), "currentPassword": "old", "newPassword": "new"},
			auth:    "Bearer tok",
		},
		{
			name:    "delete account",
			call:    func(c *authapi.Client) error { return c.DeleteAccount(context.Background(), "tok", 9, "pw") },
			method:  http.MethodDelete,
			path:    "/api/auth/delete-account/9",
			payload: map[string]any{"password": "pw"},
			auth:    "Bearer tok",
		},
		{
			name: "enable 2fa",
			call: func(c *authapi.Client) error {
				_, err := c.EnableTwoFactor(context.Background(), "tok", 9)
				return err
			},
			method: http.MethodPost,
			path:   "/api/auth/enable-2fa/9",
			auth:   "Bearer tok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, rec := newBackend(t, http.StatusOK, `{}`)
			require.NoError(t, tt.call(client))
			assert.Equal(t, tt.method, rec.method)
			assert.Equal(t, tt.path, rec.path)
			assert.Equal(t, tt.payload, rec.payload)
			assert.Equal(t, tt.auth, rec.header.Get("Authorization"))
		})
	}
}

func TestRegister_EmailFallback(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusCreated, `{"message":"check your inbox"}`)
	res, err := client.Register(context.Background(), authapi.RegisterRequest{Name: "A", Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", res.Email)
}

func TestResend_EmptyBody(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusOK, ``)
	assert.NoError(t, client.ResendVerification(context.Background(), "a@b.com"))
}

func TestOAuth_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	client, rec := newBackend(t, http.StatusOK, `{}`)
	_, err := client.OAuth(context.Background(), authapi.Provider("github"), authapi.OAuthProfile{})
	assert.ErrorIs(t, err, authapi.ErrUnsupportedProvider)
	assert.Empty(t, rec.path, "no request is sent")

	p, err := authapi.ParseProvider(" Google ")
	require.NoError(t, err)
	assert.Equal(t, authapi.ProviderGoogle, p)
}

func TestEnableTwoFactor_Decodes(t *testing.T) {
	t.Parallel()

	client, _ := newBackend(t, http.StatusOK,
		`{"secret":"S","otpauthUrl":"otpauth://totp/x","qrCode":"data:image/png;base64,AA==","backupCodes":["11111111","22222222"]}`)
	enr, err := client.EnableTwoFactor(context.Background(), "tok", 1)
	require.NoError(t, err)
	assert.Equal(t, "S", enr.Secret)
	assert.Equal(t, "otpauth://totp/x", enr.OTPAuthURL)
	assert.Len(t, enr.BackupCodes, 2)
}
