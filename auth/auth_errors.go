package auth

import (
	"errors"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
)

var (
	ErrNilIdentity      = porterrors.ErrNilIdentity
	ErrAlreadyStarted   = porterrors.ErrAlreadyStarted
	ErrNotAuthenticated = porterrors.ErrNotAuthenticated
	ErrMissingFields    = errors.New("username and password are required")
)

// statusCoder is implemented by errors that carry an HTTP response status.
type statusCoder interface {
	StatusCode() int
}

// IsRejection reports whether err came from a backend response rather than
// from the network. A 5xx still counts: the backend answered and did not
// accept the session.
func IsRejection(err error) bool {
	if errors.Is(err, porterrors.ErrSessionRejected) {
		return true
	}
	var sc statusCoder
	return errors.As(err, &sc) && sc.StatusCode() > 0
}
