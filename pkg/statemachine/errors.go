package statemachine

import (
	"errors"
	"fmt"
)

// NoTransitionError indicates no transition is registered for the state/event pair.
type NoTransitionError[S, E comparable] struct {
	State S
	Event E
}

func (e *NoTransitionError[S, E]) Error() string {
	return fmt.Sprintf("no transition available from state '%v' for event '%v'", e.State, e.Event)
}

// RejectedError indicates every candidate transition was blocked by a guard.
type RejectedError[S, E comparable] struct {
	State S
	Event E
}

func (e *RejectedError[S, E]) Error() string {
	return fmt.Sprintf("transition from state '%v' for event '%v' was rejected by guards", e.State, e.Event)
}

// ActionError wraps the error returned by a transition action.
type ActionError[S, E comparable] struct {
	From  S
	To    S
	Event E
	Err   error
}

func (e *ActionError[S, E]) Error() string {
	return fmt.Sprintf("action failed on '%v' -> '%v' (%v): %v", e.From, e.To, e.Event, e.Err)
}

func (e *ActionError[S, E]) Unwrap() error { return e.Err }

// IsNoTransition reports whether err is a NoTransitionError for S and E.
func IsNoTransition[S, E comparable](err error) bool {
	var e *NoTransitionError[S, E]
	return errors.As(err, &e)
}

// IsRejected reports whether err is a RejectedError for S and E.
func IsRejected[S, E comparable](err error) bool {
	var e *RejectedError[S, E]
	return errors.As(err, &e)
}
