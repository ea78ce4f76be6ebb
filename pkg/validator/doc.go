// Package validator provides declarative, client-side precondition checks.
//
// Each helper returns a Rule; Apply evaluates a list of rules and aggregates
// failures into ValidationErrors, which implements error and matches
// ErrValidationFailed through errors.Is:
//
//	err := validator.Apply(
//	    validator.ValidEmail("email", email),
//	    validator.MinLen("password", password, 6),
//	    validator.Matches("confirmPassword", confirm, password, "Passwords do not match"),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    fmt.Println(verrs.First())
//	}
//
// A validation failure means no request is sent to the backend.
package validator
