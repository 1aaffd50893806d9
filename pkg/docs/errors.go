package docs

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks a backend failure (connection lost, database
// down) as distinct from a programming error. Handlers map it to 503 so
// clients retry with backoff instead of treating the failure as permanent.
var ErrStoreUnavailable = errors.New("storage backend unavailable")

// ErrStaleWrite is returned when a compare-and-swap write finds the stored
// version differs from the version the caller read. The caller should re-read
// and retry or surface a merge prompt; the stored document is unchanged.
var ErrStaleWrite = errors.New("document was modified concurrently")

// ErrNotCheckoutOwner is returned when a check-in or cancel is attempted by a
// user that does not hold the checkout.
var ErrNotCheckoutOwner = errors.New("document is not checked out by this user")

// AlreadyCheckedOutError is returned when a checkout is attempted on a document
// that is already checked out or locked by someone else. It is an expected,
// recoverable condition carrying the holder's name for user-facing display.
type AlreadyCheckedOutError struct {
	DocumentID string
	HolderID   string
	HolderName string
}

func (e *AlreadyCheckedOutError) Error() string {
	holder := e.HolderName
	if holder == "" {
		holder = e.HolderID
	}
	return fmt.Sprintf("document is being edited by %s", holder)
}

// IsAlreadyCheckedOut reports whether err is an AlreadyCheckedOutError.
func IsAlreadyCheckedOut(err error) bool {
	var e *AlreadyCheckedOutError
	return errors.As(err, &e)
}
