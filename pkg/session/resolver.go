package session

import (
	"fmt"
	"net/http"
	"regexp"
)

// maxUserIDLen bounds the accepted user id length.
const maxUserIDLen = 128

// userIDRe validates user id format: alphanumeric plus the separators commonly
// found in directory principals (dots, hyphens, underscores, @).
var userIDRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._@-]*[a-zA-Z0-9])?$`)

// Header names used for header-based session resolution.
const (
	UserIDHeader   = "X-User-Id"
	UserNameHeader = "X-User-Name"
	UserRoleHeader = "X-User-Role"
)

// Resolver resolves the caller session from an HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (Session, error)
}

// HeaderResolver reads the session from trusted proxy headers. This is the
// development default; a fronting gateway is expected to strip and set these.
type HeaderResolver struct{}

// Resolve extracts the session from X-User-Id / X-User-Name / X-User-Role.
// Returns an error if the user id is missing or malformed.
func (HeaderResolver) Resolve(r *http.Request) (Session, error) {
	id := r.Header.Get(UserIDHeader)
	if id == "" {
		return Session{}, fmt.Errorf("user identity is required (set the %s header)", UserIDHeader)
	}
	if err := validateUserID(id); err != nil {
		return Session{}, err
	}

	name := r.Header.Get(UserNameHeader)
	if name == "" {
		name = id
	}

	return Session{
		UserID:   id,
		UserName: name,
		Role:     r.Header.Get(UserRoleHeader),
	}, nil
}

// validateUserID checks that a user id is within bounds and well formed.
func validateUserID(id string) error {
	if len(id) > maxUserIDLen {
		return fmt.Errorf("user id exceeds maximum length of %d characters", maxUserIDLen)
	}
	if !userIDRe.MatchString(id) {
		return fmt.Errorf("user id %q is invalid: must consist of alphanumeric characters, dots, hyphens, underscores or @, and must start and end with an alphanumeric character", id)
	}
	return nil
}
