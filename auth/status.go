package auth

import "github.com/jrsteele09/go-portal-client/users"

// Status is the session state.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusValidating             // Stored credential found, profile check in flight
	StatusAuthenticated
	StatusInvalid // Transient: validation failed, store being cleared
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusValidating:
		return "validating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Outcome says how Startup resolved.
type Outcome int

const (
	OutcomeNoSession        Outcome = iota // Nothing usable stored, no network call made
	OutcomeValidated                       // Backend accepted the stored credential
	OutcomeRejected                        // Backend answered and refused it
	OutcomeTransportFailure                // Backend could not be reached
	OutcomeSuperseded                      // Login or Logout ran while validating; result dropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSession:
		return "no_session"
	case OutcomeValidated:
		return "validated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// StartupResult is the typed result of Startup. Rejected and
// TransportFailure both end logged out; they are kept apart so a retry
// policy can tell them apart.
type StartupResult struct {
	Status   Status
	Outcome  Outcome
	Identity *users.Identity
	Err      error
}

// Change is delivered to subscribers on every state transition.
type Change struct {
	Status   Status
	Identity *users.Identity
}
