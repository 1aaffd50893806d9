package session

import "context"

// ctxKey is an unexported type used as the context key for Session.
type ctxKey struct{}

// Session carries the authenticated caller through request context.
// It is resolved once by the middleware and passed explicitly; there is no
// process-wide current-user state.
type Session struct {
	UserID   string
	UserName string
	Role     string
	// Service is true when the caller authenticated with a service credential
	// (scheduled jobs) rather than a user session.
	Service bool
}

// WithSession returns a new context with the given Session attached.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext retrieves the Session from the context.
// Returns the zero value and false if no session is set.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// UserIDFromContext is a convenience function that returns the user id
// from the context, or "system" if no session is set.
func UserIDFromContext(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok || s.UserID == "" {
		return "system"
	}
	return s.UserID
}
