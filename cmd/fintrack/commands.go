package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/qrcode"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/svc/authflow"
)

var (
	errCancelled     = errors.New("cancelled")
	errSignedIn      = errors.New("already signed in, run logout first")
	errUnknownState  = errors.New("sign-in did not complete")
	errUnknownCommand = errors.New("unknown command")
)

// app runs one command against a restored controller.
type app struct {
	flow   *authflow.Controller
	prompt *prompter
	out    io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":           {"login [-email addr]", cmdLogin},
	"register":        {"register [-name n] [-email addr]", cmdRegister},
	"oauth":           {"oauth -provider google|apple [-token id_token] [-name n]", cmdOAuth},
	"forgot":          {"forgot [-email addr]", cmdForgot},
	"reset":           {"reset [-email addr]", cmdReset},
	"logout":          {"logout", cmdLogout},
	"whoami":          {"whoami", cmdWhoami},
	"enable-2fa":      {"enable-2fa", cmdEnableTwoFactor},
	"change-password": {"change-password", cmdChangePassword},
	"delete-account":  {"delete-account", cmdDeleteAccount},
}

var commandOrder = []string{
	"login", "register", "oauth", "forgot", "reset",
	"whoami", "enable-2fa", "change-password", "delete-account", "logout",
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: fintrack <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

// dispatch restores any saved session and runs the named command.
func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownCommand, name)
	}
	if _, err := a.flow.Restore(ctx); err != nil {
		if !errors.Is(err, authflow.ErrIncompleteSession) {
			return err
		}
		fmt.Fprintln(a.out, "Saved session is incomplete; please sign in again.")
	}
	return cmd.run(ctx, a, args)
}

func (a *app) requireIdle() error {
	if a.flow.State() == authflow.StateAuthenticated {
		return errSignedIn
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireIdle(); err != nil {
		return err
	}

	addr, err := a.prompt.askDefault("Email", *email)
	if err != nil {
		return err
	}
	password, err := a.prompt.secret("Password")
	if err != nil {
		return err
	}

	_, err = a.flow.SubmitLogin(ctx, addr, password)
	return a.drive(ctx, err)
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireIdle(); err != nil {
		return err
	}

	var in authflow.RegisterInput
	var err error
	if in.Name, err = a.prompt.askDefault("Name", *name); err != nil {
		return err
	}
	if in.Email, err = a.prompt.askDefault("Email", *email); err != nil {
		return err
	}
	if in.Password, err = a.prompt.secret("Password"); err != nil {
		return err
	}
	if in.ConfirmPassword, err = a.prompt.secret("Confirm password"); err != nil {
		return err
	}
	if in.AcceptTerms, err = a.prompt.confirm("Accept the Terms of Service and Privacy Policy?"); err != nil {
		return err
	}

	res, err := a.flow.Register(ctx, in)
	if err == nil {
		fmt.Fprintf(a.out, "Account created. A verification code was sent to %s.\n", sanitizer.MaskEmail(res.Email))
	}
	return a.drive(ctx, err)
}

func cmdOAuth(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("oauth", flag.ContinueOnError)
	providerName := fs.String("provider", "", "google or apple")
	token := fs.String("token", "", "provider identity token")
	name := fs.String("name", "", "display name to send instead of the token's")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireIdle(); err != nil {
		return err
	}

	provider, err := authapi.ParseProvider(*providerName)
	if err != nil {
		return err
	}
	idToken, err := a.prompt.askDefault("Identity token", *token)
	if err != nil {
		return err
	}

	var opts []authflow.OAuthOption
	if *name != "" {
		opts = append(opts, authflow.WithDisplayName(*name))
	}
	_, err = a.flow.LoginWithOAuth(ctx, provider, idToken, opts...)
	return a.drive(ctx, err)
}

func cmdForgot(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	addr, err := a.prompt.askDefault("Email", *email)
	if err != nil {
		return err
	}
	if err := a.flow.RequestPasswordReset(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "If the account exists, a reset code was sent to %s.\n", sanitizer.MaskEmail(sanitizer.NormalizeEmail(addr)))
	return a.reset(ctx, addr)
}

func cmdReset(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	addr, err := a.prompt.askDefault("Email", *email)
	if err != nil {
		return err
	}
	return a.reset(ctx, addr)
}

func (a *app) reset(ctx context.Context, email string) error {
	in := authflow.ResetPasswordInput{Email: email}
	var err error
	if in.OTP, err = a.prompt.ask("Reset code"); err != nil {
		return err
	}
	if in.NewPassword, err = a.prompt.secret("New password"); err != nil {
		return err
	}
	if in.ConfirmPassword, err = a.prompt.secret("Confirm new password"); err != nil {
		return err
	}
	if err := a.flow.ResetPassword(ctx, in); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password reset. You can now sign in.")
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.flow.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	s := a.flow.Session()
	if s == nil {
		return authflow.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s <%s> (id %d)\n", s.Name, s.Email, s.UserID)
	return nil
}

func cmdEnableTwoFactor(ctx context.Context, a *app, _ []string) error {
	enr, err := a.flow.EnableTwoFactor(ctx)
	if err != nil {
		return err
	}

	qr, err := qrcode.Terminal(enr.OTPAuthURL)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Scan this code with your authenticator app:")
	fmt.Fprintln(a.out, qr)
	fmt.Fprintf(a.out, "Or enter the secret manually: %s\n\n", enr.Secret)
	fmt.Fprintln(a.out, "Backup codes (each works once):")
	for _, c := range enr.BackupCodes {
		fmt.Fprintf(a.out, "  %s\n", c)
	}
	return nil
}

func cmdChangePassword(ctx context.Context, a *app, _ []string) error {
	if a.flow.State() != authflow.StateAuthenticated {
		return authflow.ErrNotAuthenticated
	}

	var in authflow.ChangePasswordInput
	var err error
	if in.CurrentPassword, err = a.prompt.secret("Current password"); err != nil {
		return err
	}
	if in.NewPassword, err = a.prompt.secret("New password"); err != nil {
		return err
	}
	if in.ConfirmPassword, err = a.prompt.secret("Confirm new password"); err != nil {
		return err
	}
	if err := a.flow.ChangePassword(ctx, in); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func cmdDeleteAccount(ctx context.Context, a *app, _ []string) error {
	if a.flow.State() != authflow.StateAuthenticated {
		return authflow.ErrNotAuthenticated
	}

	ok, err := a.prompt.confirm("Delete your account and all its data?")
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}
	password, err := a.prompt.secret("Password")
	if err != nil {
		return err
	}
	if err := a.flow.DeleteAccount(ctx, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account deleted.")
	return nil
}

// drive prompts for verification and second-factor codes until the flow
// signs in, returns to idle, or the user gives up with an empty answer.
func (a *app) drive(ctx context.Context, err error) error {
	for {
		if err != nil {
			if !isStepError(a.flow.State()) {
				return err
			}
			fmt.Fprintln(a.out, authflow.Message(err))
		}

		switch a.flow.State() {
		case authflow.StateAuthenticated:
			s := a.flow.Session()
			fmt.Fprintf(a.out, "Signed in as %s <%s>.\n", s.Name, s.Email)
			return nil

		case authflow.StateNeedsVerification:
			code, perr := a.prompt.ask("Verification code (r to resend, empty to cancel)")
			if perr != nil || code == "" {
				a.flow.Abandon()
				return errors.Join(errCancelled, perr)
			}
			if strings.EqualFold(code, "r") {
				err = a.flow.ResendVerificationCode(ctx)
				if err == nil {
					fmt.Fprintln(a.out, "A new code was sent.")
				}
				continue
			}
			_, err = a.flow.SubmitVerification(ctx, code)

		case authflow.StateNeedsTwoFactor:
			code, perr := a.prompt.ask("Authenticator or backup code (empty to cancel)")
			if perr != nil || code == "" {
				a.flow.Abandon()
				return errors.Join(errCancelled, perr)
			}
			_, err = a.flow.SubmitTwoFactor(ctx, code)

		default:
			return errUnknownState
		}
	}
}

func isStepError(s authflow.State) bool {
	return s == authflow.StateNeedsVerification || s == authflow.StateNeedsTwoFactor
}
