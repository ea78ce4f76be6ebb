// Package authapi is the HTTP/JSON client for the finance backend's
// authentication endpoints.
//
// Every call sends Content-Type: application/json and an X-Request-ID taken
// from the context (or generated). Calls made on behalf of a signed-in user
// also send Authorization: Bearer <token>.
//
// Failures are reported as *NetworkError (no usable response) or *APIError
// (non-2xx status). The two wrap ErrNetwork and ErrApplication respectively.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/requestid"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "fintrack-cli/1.0"
	maxBodySize      = 64 << 10
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	log       *slog.Logger
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.base.String() }

// Login posts credentials. A successful result either carries a session or
// Requires2FA with a TempToken. An unverified account yields an *APIError with
// status 403 and RequiresVerification set.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", "", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The backend then expects email verification.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var out RegisterResult
	if err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	if out.Email == "" {
		out.Email = req.Email
	}
	return &out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, email, otp string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, "verify-email", http.MethodPost, "/api/auth/verify-email", "", verifyRequest{email, otp}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, "resend-verification", http.MethodPost, "/api/auth/resend-verification", "", emailRequest{email}, nil)
}

// ValidateTwoFactor exchanges the login temp token and a numeric code for a
// session. The code travels as a JSON number.
func (c *Client) ValidateTwoFactor(ctx context.Context, tempToken string, code int) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, "2fa-validate", http.MethodPost, "/api/auth/2fa/validate", "", twoFactorRequest{tempToken, code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, "forgot-password", http.MethodPost, "/api/auth/forgot-password", "", emailRequest{email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return c.do(ctx, "reset-password", http.MethodPost, "/api/auth/reset-password", "", resetRequest{email, otp, newPassword}, nil)
}

// OAuth exchanges a decoded provider profile for a session.
func (c *Client) OAuth(ctx context.Context, provider Provider, profile OAuthProfile) (*AuthResult, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	var out AuthResult
	if err := c.do(ctx, "oauth", http.MethodPost, "/api/auth/oauth/"+string(provider), "", profile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, token string, userID int64, current, next string) error {
	var out messageResponse
	return c.do(ctx, "change-password", http.MethodPost, "/api/auth/change-password", token,
		changePasswordRequest{UserID: userID, CurrentPassword: current, NewPassword: next}, &out)
}

func (c *Client) DeleteAccount(ctx context.Context, token string, userID int64, password string) error {
	var out messageResponse
	return c.do(ctx, "delete-account", http.MethodDelete, "/api/auth/delete-account/"+strconv.FormatInt(userID, 10), token,
		deleteAccountRequest{password}, &out)
}

func (c *Client) EnableTwoFactor(ctx context.Context, token string, userID int64) (*TwoFactorEnrollment, error) {
	var out TwoFactorEnrollment
	if err := c.do(ctx, "enable-2fa", http.MethodPost, "/api/auth/enable-2fa/"+strconv.FormatInt(userID, 10), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	ctx, reqID := requestid.Ensure(ctx)
	start := time.Now()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("authapi: %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("authapi: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestid.Header, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "auth request failed",
			logger.Operation(op), logger.Duration(time.Since(start)), logger.Error(err))
		return &NetworkError{Op: op, RequestID: reqID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: op, RequestID: reqID, Err: err}
	}

	c.log.DebugContext(ctx, "auth request",
		logger.Operation(op),
		logger.StatusCode(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(op, reqID, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &NetworkError{Op: op, RequestID: reqID, Err: errors.Join(ErrMalformedResponse, err)}
	}
	return nil
}

func decodeAPIError(op, reqID string, status int, raw []byte) *APIError {
	apiErr := &APIError{Op: op, Status: status, RequestID: reqID}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(eb.Error)
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(eb.Message)
	}
	apiErr.RequiresVerification = eb.RequiresVerification
	apiErr.Email = eb.Email
	return apiErr
}
