package authflow

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/idtoken"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

const (
	minPasswordLen     = 6
	maxVerificationLen = 6
	maxTwoFactorLen    = 8
)

// SubmitLogin signs in with email and password. Allowed only from idle.
//
// The result is NeedsVerification for an unverified account (with the email
// the server reported), NeedsTwoFactor when a second factor is required, or
// Authenticated with the session already saved.
func (c *Controller) SubmitLogin(ctx context.Context, email, password string) (Result, error) {
	email = sanitizer.NormalizeEmail(email)
	att, err := c.begin(ctx, opLogin, func() error {
		return validator.Apply(
			validator.ValidEmail("email", email),
			validator.Required("password", password),
		)
	}, StateIdle)
	if err != nil {
		return c.rejected(), err
	}

	res, err := c.api.Login(ctx, email, password)
	return c.finish(ctx, att, res, err, email)
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	AcceptTerms     bool
}

// Register creates an account and moves to NeedsVerification. Allowed only
// from idle.
func (c *Controller) Register(ctx context.Context, in RegisterInput) (Result, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = sanitizer.NormalizeEmail(in.Email)
	att, err := c.begin(ctx, opRegister, func() error {
		return validator.Apply(
			validator.Required("name", in.Name),
			validator.ValidEmail("email", in.Email),
			validator.MinLen("password", in.Password, minPasswordLen),
			validator.Matches("confirmPassword", in.ConfirmPassword, in.Password, "Passwords do not match"),
			validator.Accepted("acceptTerms", in.AcceptTerms, "You must agree to the Terms of Service"),
		)
	}, StateIdle)
	if err != nil {
		return c.rejected(), err
	}

	res, err := c.api.Register(ctx, authapi.RegisterRequest{Name: in.Name, Email: in.Email, Password: in.Password})
	return c.settle(ctx, att, func() (Result, error) {
		if err != nil {
			return c.fail(ctx, att, err)
		}
		var email string
		if res != nil {
			email = res.Email
		}
		return c.requireVerification(ctx, email, in.Email)
	})
}

// SubmitVerification sends the emailed code. Allowed only from
// NeedsVerification; a wrong code keeps the step open for another try.
func (c *Controller) SubmitVerification(ctx context.Context, otp string) (Result, error) {
	otp = sanitizer.NormalizeCode(otp)
	att, err := c.begin(ctx, opVerify, func() error {
		return validator.Apply(validator.Digits("otp", otp, 1, maxVerificationLen))
	}, StateNeedsVerification)
	if err != nil {
		return c.rejected(), err
	}

	res, err := c.api.VerifyEmail(ctx, att.pending.email, otp)
	return c.finish(ctx, att, res, err, att.pending.email)
}

// ResendVerificationCode asks for a new code. It never changes state and its
// failure leaves the verification step usable.
func (c *Controller) ResendVerificationCode(ctx context.Context) error {
	c.mu.Lock()
	cur := c.fsm.Current()
	email := c.pending.email
	c.mu.Unlock()

	switch cur {
	case StateNeedsVerification:
	case StateSubmitting:
		return ErrBusy
	default:
		return errors.Join(ErrInvalidState, errors.New("no verification pending"))
	}

	if err := c.api.ResendVerification(ctx, email); err != nil {
		c.log.WarnContext(ctx, "resend verification failed", logger.Operation(string(opResend)), logger.Error(err))
		return &FlowError{Op: string(opResend), Message: describe(opResend, "", err), Err: err}
	}
	return nil
}

// SubmitTwoFactor sends the authenticator or backup code. Allowed only from
// NeedsTwoFactor; a wrong code keeps the step open for another try.
func (c *Controller) SubmitTwoFactor(ctx context.Context, code string) (Result, error) {
	code = sanitizer.NormalizeCode(code)
	var n int
	att, err := c.begin(ctx, opTwoFactor, func() error {
		if err := validator.Apply(validator.Digits("code", code, 1, maxTwoFactorLen)); err != nil {
			return err
		}
		n, _ = strconv.Atoi(code)
		return nil
	}, StateNeedsTwoFactor)
	if err != nil {
		return c.rejected(), err
	}

	res, err := c.api.ValidateTwoFactor(ctx, att.pending.tempToken, n)
	return c.finish(ctx, att, res, err, "")
}

// LoginWithOAuth signs in with a provider identity token. The token is
// decoded without checking its signature and the claims are forwarded to the
// backend, which must verify the token itself. OAuth sign-ins skip the
// verification and 2FA steps. Allowed only from idle.
func (c *Controller) LoginWithOAuth(ctx context.Context, provider authapi.Provider, identityToken string, opts ...OAuthOption) (Result, error) {
	var o oauthOptions
	for _, opt := range opts {
		opt(&o)
	}

	att, err := c.begin(ctx, opOAuth, func() error {
		return validator.Apply(
			validator.OneOf("provider", provider, authapi.ProviderGoogle, authapi.ProviderApple),
			validator.Required("identityToken", identityToken),
		)
	}, StateIdle)
	if err != nil {
		return c.rejected(), err
	}
	att.provider = provider

	claims, err := idtoken.Decode(identityToken)
	if err != nil {
		return c.settle(ctx, att, func() (Result, error) {
			return c.fail(ctx, att, errors.Join(ErrInvalidIdentityToken, err))
		})
	}

	profile := authapi.OAuthProfile{
		OAuthID:        claims.Subject,
		Email:          sanitizer.NormalizeEmail(claims.Email),
		Name:           c.oauthName(provider, claims, o.displayName),
		ProfilePicture: claims.Picture,
	}
	res, err := c.api.OAuth(ctx, provider, profile)
	return c.finish(ctx, att, res, err, "")
}

func (c *Controller) oauthName(provider authapi.Provider, claims *idtoken.Claims, override string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	if name := claims.DisplayName(); name != "" {
		return name
	}
	if provider == authapi.ProviderApple {
		return c.appleName
	}
	return ""
}

// rejected describes an operation that never started.
func (c *Controller) rejected() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.fsm.Current()
	return Result{State: cur, Resume: cur, Email: c.pending.email}
}
