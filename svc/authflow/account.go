package authflow

import (
	"context"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

// RequestPasswordReset emails a reset code. It does not touch the sign-in
// state but is refused while an attempt is in flight.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := c.notBusy(); err != nil {
		return err
	}
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return err
	}

	if err := c.api.ForgotPassword(ctx, email); err != nil {
		return c.accountFailure(ctx, opForgotPassword, err)
	}
	return nil
}

// ResetPasswordInput is the reset form.
type ResetPasswordInput struct {
	Email           string
	OTP             string
	NewPassword     string
	ConfirmPassword string
}

// ResetPassword sets a new password using the emailed code. The user signs in
// afterwards as usual.
func (c *Controller) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = sanitizer.NormalizeEmail(in.Email)
	in.OTP = sanitizer.NormalizeCode(in.OTP)
	if err := c.notBusy(); err != nil {
		return err
	}
	if err := validator.Apply(
		validator.ValidEmail("email", in.Email),
		validator.Digits("otp", in.OTP, 1, maxVerificationLen),
		validator.MinLen("newPassword", in.NewPassword, minPasswordLen),
		validator.Matches("confirmPassword", in.ConfirmPassword, in.NewPassword, "Passwords do not match"),
	); err != nil {
		return err
	}

	if err := c.api.ResetPassword(ctx, in.Email, in.OTP, in.NewPassword); err != nil {
		return c.accountFailure(ctx, opResetPassword, err)
	}
	return nil
}

// EnableTwoFactor starts 2FA enrolment for the signed-in user.
func (c *Controller) EnableTwoFactor(ctx context.Context) (*authapi.TwoFactorEnrollment, error) {
	s, _, err := c.signedIn()
	if err != nil {
		return nil, err
	}

	enr, err := c.api.EnableTwoFactor(ctx, s.Token, s.UserID)
	if err != nil {
		return nil, c.accountFailure(ctx, opEnableTwoFactor, err)
	}
	c.log.InfoContext(ctx, "two-factor enrolment started", logger.UserID(s.UserID))
	return enr, nil
}

// ChangePasswordInput is the change-password form.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword changes the signed-in user's password. The session stays
// valid.
func (c *Controller) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	s, _, err := c.signedIn()
	if err != nil {
		return err
	}
	if err := validator.Apply(
		validator.Required("currentPassword", in.CurrentPassword),
		validator.Matches("confirmPassword", in.ConfirmPassword, in.NewPassword, "New passwords do not match"),
		validator.MinLen("newPassword", in.NewPassword, minPasswordLen),
	); err != nil {
		return err
	}

	if err := c.api.ChangePassword(ctx, s.Token, s.UserID, in.CurrentPassword, in.NewPassword); err != nil {
		return c.accountFailure(ctx, opChangePassword, err)
	}
	c.log.InfoContext(ctx, "password changed", logger.UserID(s.UserID))
	return nil
}

// DeleteAccount deletes the signed-in user's account, clears the session
// store and returns to idle.
func (c *Controller) DeleteAccount(ctx context.Context, password string) error {
	s, gen, err := c.signedIn()
	if err != nil {
		return err
	}
	if err := validator.Apply(validator.Required("password", password)); err != nil {
		return err
	}

	if err := c.api.DeleteAccount(ctx, s.Token, s.UserID, password); err != nil {
		return c.accountFailure(ctx, opDeleteAccount, err)
	}
	c.log.InfoContext(ctx, "account deleted", logger.UserID(s.UserID))

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// signed out meanwhile; the store no longer holds this account
		return nil
	}
	return c.reset(ctx)
}

func (c *Controller) notBusy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.Current() == StateSubmitting {
		return ErrBusy
	}
	return nil
}

// signedIn returns the current session and generation.
func (c *Controller) signedIn() (session.Session, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fsm.Current() != StateAuthenticated || c.session == nil {
		return session.Session{}, 0, ErrNotAuthenticated
	}
	return *c.session, c.gen, nil
}

func (c *Controller) accountFailure(ctx context.Context, op operation, err error) error {
	msg := describe(op, "", err)
	c.log.WarnContext(ctx, "account operation failed", logger.Operation(string(op)), logger.Error(err))
	return &FlowError{Op: string(op), Message: msg, Err: err}
}
