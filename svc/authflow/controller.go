package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/pkg/statemachine"
)

// AuthService is the backend the controller signs in against.
// *authapi.Client implements it.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*authapi.AuthResult, error)
	Register(ctx context.Context, req authapi.RegisterRequest) (*authapi.RegisterResult, error)
	VerifyEmail(ctx context.Context, email, otp string) (*authapi.AuthResult, error)
	ResendVerification(ctx context.Context, email string) error
	ValidateTwoFactor(ctx context.Context, tempToken string, code int) (*authapi.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	OAuth(ctx context.Context, provider authapi.Provider, profile authapi.OAuthProfile) (*authapi.AuthResult, error)
	ChangePassword(ctx context.Context, token string, userID int64, current, next string) error
	DeleteAccount(ctx context.Context, token string, userID int64, password string) error
	EnableTwoFactor(ctx context.Context, token string, userID int64) (*authapi.TwoFactorEnrollment, error)
}

// Result describes where an attempt left the flow.
type Result struct {
	// State is the state the attempt reached. StateFailed when it failed.
	State State
	// Resume is the state the user continues from. Equal to State on success.
	Resume State
	// Email is the address awaiting verification, if any.
	Email   string
	Session *session.Session
	// Message is the user-facing failure text.
	Message string
}

// Transition is reported to observers after every state change.
type Transition struct {
	From       State
	To         State
	Event      Event
	Generation uint64
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State        State
	Email        string
	HasTempToken bool
	Session      *session.Session
	LastError    string
	Generation   uint64
}

// Controller runs the sign-in flow. One attempt may be in flight at a time;
// all methods are safe for concurrent use.
//
// Each attempt remembers the generation it started in. Abandon, Logout and a
// successful DeleteAccount move to a new generation, and a response that
// arrives for an older one is dropped with ErrStaleResponse.
type Controller struct {
	api       AuthService
	store     session.Store
	log       *slog.Logger
	appleName string
	observers []func(Transition)

	mu      sync.Mutex
	fsm     *statemachine.Machine[State, Event]
	gen     uint64
	pending pending
	session *session.Session
	lastErr string
}

func New(api AuthService, store session.Store, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		store:     store,
		log:       logger.Discard(),
		appleName: "Apple User",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("authflow"))
	c.fsm = c.newMachine()
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.Current()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:        c.fsm.Current(),
		Email:        c.pending.email,
		HasTempToken: c.pending.tempToken != "",
		Session:      copySession(c.session),
		LastError:    c.lastErr,
		Generation:   c.gen,
	}
}

// Session returns the signed-in session, or nil.
func (c *Controller) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySession(c.session)
}

// Abandon drops the pending step, or the attempt in flight, and returns to
// idle. A signed-in controller is left untouched.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fsm.Current() == StateAuthenticated {
		return
	}
	c.gen++
	c.pending = pending{}
	c.lastErr = ""
	c.fire(context.Background(), EventAbandon, nil)
}

// Logout clears the session store and returns to idle from any state.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(ctx)
}

// Restore resumes a session persisted by an earlier run. With nothing stored
// the controller stays idle and no error is returned.
func (c *Controller) Restore(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.fsm.Current(); cur != StateIdle {
		return Result{State: cur, Resume: cur}, fmt.Errorf("%w: restore from %s", ErrInvalidState, cur)
	}

	s, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return Result{State: StateIdle, Resume: StateIdle}, nil
	case errors.Is(err, session.ErrIncomplete):
		c.log.WarnContext(ctx, "stored session is incomplete", logger.Error(err))
		return Result{State: StateIdle, Resume: StateIdle}, errors.Join(ErrIncompleteSession, err)
	case err != nil:
		return Result{State: StateIdle, Resume: StateIdle}, fmt.Errorf("authflow: load session: %w", err)
	}

	if err := c.fsm.Fire(ctx, EventRestore, nil); err != nil {
		return Result{State: StateIdle, Resume: StateIdle}, err
	}
	c.session = &s
	c.log.InfoContext(ctx, "session restored", logger.UserID(s.UserID))
	return Result{State: StateAuthenticated, Resume: StateAuthenticated, Session: copySession(&s)}, nil
}

// attempt is captured when a request starts and checked when it returns.
type attempt struct {
	op       operation
	provider authapi.Provider
	gen      uint64
	pending  pending
}

// begin moves to submitting if the current state is one of from and validate
// passes. Validation failures leave the state untouched.
func (c *Controller) begin(ctx context.Context, op operation, validate func() error, from ...State) (attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.fsm.Current()
	if cur == StateSubmitting {
		return attempt{}, ErrBusy
	}
	if !slices.Contains(from, cur) {
		return attempt{}, fmt.Errorf("%w: %s from %s", ErrInvalidState, op, cur)
	}
	if validate != nil {
		if err := validate(); err != nil {
			return attempt{}, err
		}
	}
	if err := c.fsm.Fire(ctx, EventSubmit, nil); err != nil {
		return attempt{}, err
	}
	c.lastErr = ""
	return attempt{op: op, gen: c.gen, pending: c.pending}, nil
}

// settle runs fn under the lock unless the attempt went stale.
func (c *Controller) settle(ctx context.Context, att attempt, fn func() (Result, error)) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if att.gen != c.gen || c.fsm.Current() != StateSubmitting {
		cur := c.fsm.Current()
		c.log.DebugContext(ctx, "discarding stale response",
			logger.Operation(string(att.op)),
			logger.Generation(att.gen),
			logger.State(string(cur)),
		)
		return Result{State: cur, Resume: cur}, ErrStaleResponse
	}
	return fn()
}

// finish settles an attempt that returns an AuthResult. fallbackEmail is the
// address the user typed, used only if the server omits one.
func (c *Controller) finish(ctx context.Context, att attempt, res *authapi.AuthResult, err error, fallbackEmail string) (Result, error) {
	return c.settle(ctx, att, func() (Result, error) {
		if err != nil {
			if apiErr, ok := authapi.AsAPIError(err); ok && att.op == opLogin &&
				apiErr.Status == http.StatusForbidden && apiErr.RequiresVerification {
				return c.requireVerification(ctx, apiErr.Email, fallbackEmail)
			}
			return c.fail(ctx, att, err)
		}
		if res == nil {
			return c.fail(ctx, att, ErrIncompleteSession)
		}
		if att.op == opLogin && res.Requires2FA {
			return c.requireTwoFactor(ctx, att, res.TempToken)
		}
		return c.authenticate(ctx, att, res.Session())
	})
}

// The methods below must be called with c.mu held.

func (c *Controller) authenticate(ctx context.Context, att attempt, s session.Session) (Result, error) {
	if err := c.fsm.Fire(ctx, EventSucceed, s); err != nil {
		var actionErr *statemachine.ActionError[State, Event]
		if errors.As(err, &actionErr) {
			err = actionErr.Err
		}
		return c.fail(ctx, att, err)
	}
	c.pending = pending{}
	c.session = &s
	c.log.InfoContext(ctx, "signed in",
		logger.Operation(string(att.op)),
		logger.UserID(s.UserID),
	)
	return Result{State: StateAuthenticated, Resume: StateAuthenticated, Session: copySession(&s)}, nil
}

func (c *Controller) requireVerification(ctx context.Context, email, fallback string) (Result, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		email = fallback
	}
	c.pending = pending{kind: pendingVerification, email: email}
	c.fire(ctx, EventRequireVerification, nil)
	c.log.InfoContext(ctx, "email verification required", slog.String("email", sanitizer.MaskEmail(email)))
	return Result{State: StateNeedsVerification, Resume: StateNeedsVerification, Email: email}, nil
}

func (c *Controller) requireTwoFactor(ctx context.Context, att attempt, tempToken string) (Result, error) {
	if tempToken == "" {
		return c.fail(ctx, att, ErrMissingTempToken)
	}
	c.pending = pending{kind: pendingTwoFactor, tempToken: tempToken}
	c.fire(ctx, EventRequireTwoFactor, nil)
	return Result{State: StateNeedsTwoFactor, Resume: StateNeedsTwoFactor}, nil
}

// fail records the failure, then retries back to the step the attempt
// started from.
func (c *Controller) fail(ctx context.Context, att attempt, cause error) (Result, error) {
	msg := describe(att.op, att.provider, cause)
	c.lastErr = msg
	c.fire(ctx, EventFail, nil)
	c.fire(ctx, EventRetry, nil)

	c.log.WarnContext(ctx, "auth attempt failed",
		logger.Operation(string(att.op)),
		logger.State(string(c.fsm.Current())),
		logger.Error(cause),
	)
	return Result{
			State:   StateFailed,
			Resume:  c.fsm.Current(),
			Email:   c.pending.email,
			Message: msg,
		}, &FlowError{
			Op:      string(att.op),
			Message: msg,
			Err:     cause,
		}
}

func (c *Controller) reset(ctx context.Context) error {
	c.gen++
	c.pending = pending{}
	c.session = nil
	c.lastErr = ""
	if c.fsm.Current() == StateAuthenticated {
		c.fire(ctx, EventLogout, nil)
	} else {
		c.fire(ctx, EventAbandon, nil)
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("authflow: clear session: %w", err)
	}
	c.log.InfoContext(ctx, "signed out")
	return nil
}

// fire applies a transition the table guarantees to exist.
func (c *Controller) fire(ctx context.Context, ev Event, data any) {
	if err := c.fsm.Fire(ctx, ev, data); err != nil {
		c.log.ErrorContext(ctx, "unexpected transition failure", logger.Event(string(ev)), logger.Error(err))
	}
}

// persistSession is the action on submitting -> authenticated. A failure
// aborts the transition, so nothing incomplete is ever stored.
func (c *Controller) persistSession(ctx context.Context, _, _ State, _ Event, data any) error {
	s, ok := data.(session.Session)
	if !ok {
		return ErrIncompleteSession
	}
	if err := s.Validate(); err != nil {
		return errors.Join(ErrIncompleteSession, err)
	}
	// the response already arrived; a cancelled caller must not lose it halfway
	if err := c.store.Save(context.WithoutCancel(ctx), s); err != nil {
		return fmt.Errorf("authflow: save session: %w", err)
	}
	return nil
}

func (c *Controller) onTransition(from, to State, ev Event) {
	c.log.Debug("transition",
		logger.Transition(string(from), string(to)),
		logger.Event(string(ev)),
		logger.Generation(c.gen),
	)
	t := Transition{From: from, To: to, Event: ev, Generation: c.gen}
	for _, fn := range c.observers {
		fn(t)
	}
}

func copySession(s *session.Session) *session.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
