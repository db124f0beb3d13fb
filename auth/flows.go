package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-portal-client/users"
)

// RouteChangePassword is where a first-login account is sent before any
// dashboard.
const RouteChangePassword = "/change-password"

// Backend is the subset of the portal auth API the flows drive.
type Backend interface {
	ProfileService
	Login(ctx context.Context, username, password string) (*users.Identity, string, error)
	ChangePassword(ctx context.Context, change users.PasswordChange) error
	UpdateProfile(ctx context.Context, patch users.ProfilePatch) (*users.Identity, error)
	Logout(ctx context.Context) error
}

// LoginResult is the confirmed identity and the screen to open next.
type LoginResult struct {
	Identity *users.Identity
	Next     string
}

// Flows are the screen-level operations that talk to the backend and then
// hand the result to the Controller.
type Flows struct {
	controller *Controller
	backend    Backend
}

func NewFlows(controller *Controller, backend Backend) (*Flows, error) {
	if controller == nil {
		return nil, errors.New("[NewFlows] controller is required")
	}
	if backend == nil {
		return nil, errors.New("[NewFlows] backend is required")
	}
	return &Flows{controller: controller, backend: backend}, nil
}

// Login exchanges credentials for an identity and a bearer credential. The
// controller is only updated when the backend accepted them.
func (f *Flows) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	identity, credential, err := f.backend.Login(ctx, username, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Flows.Login] backend.Login")
	}
	if identity == nil {
		return nil, errors.New("[Flows.Login] backend returned no user")
	}

	result := &LoginResult{Identity: identity.Clone(), Next: nextScreen(identity)}
	if err := f.controller.Login(identity, credential); err != nil {
		return result, errors.Wrap(err, "[Flows.Login] session not persisted")
	}
	return result, nil
}

// ChangePassword validates the form locally, submits it, and clears the
// first-login flag on the stored identity. It returns the landing screen.
func (f *Flows) ChangePassword(ctx context.Context, change users.PasswordChange) (string, error) {
	current := f.controller.CurrentIdentity()
	if current == nil {
		return "", ErrNotAuthenticated
	}
	if err := change.Validate(current); err != nil {
		return "", err
	}
	if err := f.backend.ChangePassword(ctx, change); err != nil {
		return "", errors.Wrap(err, "[Flows.ChangePassword] backend.ChangePassword")
	}

	current.FirstLoginRequired = false
	if err := f.controller.Login(current, ""); err != nil {
		return current.LandingRoute(), errors.Wrap(err, "[Flows.ChangePassword] session not persisted")
	}
	return current.LandingRoute(), nil
}

// UpdateProfile submits patch and stores the identity the backend returns.
func (f *Flows) UpdateProfile(ctx context.Context, patch users.ProfilePatch) (*users.Identity, error) {
	if f.controller.CurrentIdentity() == nil {
		return nil, ErrNotAuthenticated
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	identity, err := f.backend.UpdateProfile(ctx, patch)
	if err != nil {
		return nil, errors.Wrap(err, "[Flows.UpdateProfile] backend.UpdateProfile")
	}
	if identity == nil {
		return nil, errors.New("[Flows.UpdateProfile] backend returned no user")
	}
	if err := f.controller.Login(identity, ""); err != nil {
		return identity.Clone(), errors.Wrap(err, "[Flows.UpdateProfile] session not persisted")
	}
	return identity.Clone(), nil
}

// Refresh re-reads the profile from the backend.
func (f *Flows) Refresh(ctx context.Context) (*users.Identity, error) {
	return f.controller.RefreshProfile(ctx, f.backend)
}

// Logout tells the backend to end its cookie session, then clears the local
// session regardless of the outcome.
func (f *Flows) Logout(ctx context.Context) error {
	err := f.backend.Logout(ctx)
	f.controller.Logout()
	if err != nil {
		return errors.Wrap(err, "[Flows.Logout] backend.Logout")
	}
	return nil
}

func nextScreen(identity *users.Identity) string {
	if identity.FirstLoginRequired {
		return RouteChangePassword
	}
	return identity.LandingRoute()
}
