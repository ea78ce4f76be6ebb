// Package authflow drives the sign-in flow of the finance dashboard: password
// login, the optional email-verification and second-factor steps, OAuth
// sign-in, and establishing the persisted session.
//
// The flow is an explicit state machine:
//
//	idle               --submit-->               submitting
//	needs_verification --submit-->               submitting
//	needs_two_factor   --submit-->               submitting
//	submitting         --require_verification--> needs_verification
//	submitting         --require_two_factor-->   needs_two_factor
//	submitting         --succeed-->              authenticated
//	submitting         --fail-->                 failed --retry--> previous step
//	authenticated      --logout-->               idle
//	any other state    --abandon-->              idle
//
// A failed attempt passes through failed and immediately retries back to the
// step it started from, so a wrong verification or 2FA code never forces the
// user to log in again. Every entry into authenticated saves exactly one
// complete session.Session; an incomplete server response fails closed and
// writes nothing.
//
// Usage:
//
//	client, _ := authapi.New("http://localhost:8080")
//	flow := authflow.New(client, session.NewFileStore(path), authflow.WithLogger(log))
//
//	res, err := flow.SubmitLogin(ctx, email, password)
//	switch {
//	case err != nil:
//		fmt.Println(authflow.Message(err))
//	case res.State == authflow.StateNeedsTwoFactor:
//		res, err = flow.SubmitTwoFactor(ctx, code)
//	}
package authflow
