package authflow

import (
	"context"

	"github.com/dmitrymomot/fintrack/pkg/statemachine"
)

// State is the controller's position in the sign-in flow.
type State string

const (
	StateIdle              State = "idle"
	StateSubmitting        State = "submitting"
	StateNeedsVerification State = "needs_verification"
	StateNeedsTwoFactor    State = "needs_two_factor"
	StateAuthenticated     State = "authenticated"
	StateFailed            State = "failed"
)

func (s State) String() string { return string(s) }

// Event drives transitions between states.
type Event string

const (
	EventSubmit              Event = "submit"
	EventRequireVerification Event = "require_verification"
	EventRequireTwoFactor    Event = "require_two_factor"
	EventSucceed             Event = "succeed"
	EventFail                Event = "fail"
	EventRetry               Event = "retry"
	EventAbandon             Event = "abandon"
	EventLogout              Event = "logout"
	EventRestore             Event = "restore"
)

func (e Event) String() string { return string(e) }

type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingVerification
	pendingTwoFactor
)

// pending is the single step awaiting user input. Holding it in one value
// makes a verification and a 2FA step mutually exclusive.
type pending struct {
	kind      pendingKind
	email     string
	tempToken string
}

// newMachine builds the transition table. Guards and actions read controller
// fields and rely on Fire being called with c.mu held.
func (c *Controller) newMachine() *statemachine.Machine[State, Event] {
	persist := statemachine.WithAction[State, Event](c.persistSession)
	resumeVerification := statemachine.WithGuard[State, Event](func(context.Context, State, Event, any) bool {
		return c.pending.kind == pendingVerification
	})
	resumeTwoFactor := statemachine.WithGuard[State, Event](func(context.Context, State, Event, any) bool {
		return c.pending.kind == pendingTwoFactor
	})

	opts := []statemachine.Option[State, Event]{
		statemachine.WithTransition(StateIdle, StateSubmitting, EventSubmit),
		statemachine.WithTransition(StateNeedsVerification, StateSubmitting, EventSubmit),
		statemachine.WithTransition(StateNeedsTwoFactor, StateSubmitting, EventSubmit),

		statemachine.WithTransition(StateSubmitting, StateNeedsVerification, EventRequireVerification),
		statemachine.WithTransition(StateSubmitting, StateNeedsTwoFactor, EventRequireTwoFactor),
		statemachine.WithTransition(StateSubmitting, StateAuthenticated, EventSucceed, persist),
		statemachine.WithTransition(StateSubmitting, StateFailed, EventFail),

		// first matching guard wins
		statemachine.WithTransition(StateFailed, StateNeedsVerification, EventRetry, resumeVerification),
		statemachine.WithTransition(StateFailed, StateNeedsTwoFactor, EventRetry, resumeTwoFactor),
		statemachine.WithTransition(StateFailed, StateIdle, EventRetry),

		statemachine.WithTransition(StateAuthenticated, StateIdle, EventLogout),
		statemachine.WithTransition(StateIdle, StateAuthenticated, EventRestore),

		statemachine.WithObserver(c.onTransition),
	}
	for _, from := range []State{StateIdle, StateSubmitting, StateNeedsVerification, StateNeedsTwoFactor, StateFailed} {
		opts = append(opts, statemachine.WithTransition(from, StateIdle, EventAbandon))
	}

	return statemachine.MustNew(StateIdle, opts...)
}
