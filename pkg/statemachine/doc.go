// Package statemachine implements a small generic finite state machine.
//
// States and events are any comparable type, typically string enums:
//
//	type State string
//	type Event string
//
//	m := statemachine.MustNew[State, Event]("idle",
//	    statemachine.WithTransition[State, Event]("idle", "submitting", "submit"),
//	    statemachine.WithTransition[State, Event]("submitting", "done", "succeed",
//	        statemachine.WithAction(persist),
//	    ),
//	)
//	err := m.Fire(ctx, "submit", nil)
//
// Several transitions may share a from/event pair; their guards are evaluated
// in registration order and the first passing transition is taken. Actions
// run under the machine lock before the state changes, and an action error
// aborts the transition (returned as *ActionError).
package statemachine
