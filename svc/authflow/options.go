package authflow

import "log/slog"

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver registers fn to receive every transition. Observers run
// synchronously while the controller is locked and must not call back into it.
func WithObserver(fn func(Transition)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// WithAppleFallbackName sets the name sent for Apple sign-ins that carry no
// name at all. Apple shares the user's name only on the first authorization.
func WithAppleFallbackName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.appleName = name
		}
	}
}

// OAuthOption adjusts a single OAuth sign-in.
type OAuthOption func(*oauthOptions)

type oauthOptions struct {
	displayName string
}

// WithDisplayName overrides the name decoded from the identity token, e.g.
// with the name Apple returns next to the token on first sign-in.
func WithDisplayName(name string) OAuthOption {
	return func(o *oauthOptions) { o.displayName = name }
}
