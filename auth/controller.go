package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
	"github.com/jrsteele09/go-portal-client/sessions"
	"github.com/jrsteele09/go-portal-client/users"
)

// ProfileService is the backend call used to validate a stored credential.
type ProfileService interface {
	Profile(ctx context.Context) (*users.Identity, error)
}

// Controller owns the session. It is the only writer of the session store;
// everything else reads identity and credential through it.
type Controller struct {
	store   sessions.Store
	logger  zerolog.Logger
	retries int
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	status   Status
	identity *users.Identity
	started  bool
	gen      uint64 // bumped by Login and Logout
	subs     map[int]func(Change)
	nextSub  int
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithStartupRetries retries the startup profile check up to n extra times
// when it fails at the transport level. Backend rejections are never retried.
func WithStartupRetries(n int, backoff time.Duration) ControllerOption {
	return func(c *Controller) {
		if n < 0 {
			n = 0
		}
		c.retries = n
		c.backoff = backoff
	}
}

// WithSleep replaces the retry sleep (primarily for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

func NewController(store sessions.Store, options ...ControllerOption) (*Controller, error) {
	if store == nil {
		return nil, errors.New("[NewController] session store is required")
	}
	c := &Controller{
		store:  store,
		logger: log.Logger,
		sleep:  sleepContext,
		status: StatusUnauthenticated,
		subs:   make(map[int]func(Change)),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Startup restores the session left by a previous run. A validation call is
// made only when both the identity and the credential are stored. Any
// failure clears the store. Callers must not show role-gated content until
// Startup returns.
func (c *Controller) Startup(ctx context.Context, profiles ProfileService) (StartupResult, error) {
	if profiles == nil {
		return StartupResult{}, errors.New("[Controller.Startup] profile service is required")
	}

	c.mu.Lock()
	if c.started {
		status := c.status
		c.mu.Unlock()
		return StartupResult{Status: status}, ErrAlreadyStarted
	}
	c.started = true
	gen := c.gen

	record, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("session store unreadable, starting logged out")
	}
	if err != nil || !record.Complete() {
		if err != nil || !record.IsEmpty() {
			c.clearStoreLocked(ctx)
		}
		c.mu.Unlock()
		c.logger.Debug().Msg("no stored session")
		return StartupResult{Status: StatusUnauthenticated, Outcome: OutcomeNoSession}, nil
	}

	if expiry, ok := CredentialExpiry(record.AccessToken); ok && expiry.Before(time.Now()) {
		c.logger.Debug().Time("expired_at", expiry).Msg("stored credential looks expired, validating anyway")
	}
	changes := c.setStatusLocked(StatusValidating, nil)
	c.mu.Unlock()
	c.notify(changes)

	identity, err := c.fetchProfile(ctx, profiles)

	c.mu.Lock()
	if c.gen != gen {
		status, current := c.status, c.identity.Clone()
		c.mu.Unlock()
		c.logger.Info().Msg("session changed during startup validation, dropping result")
		return StartupResult{Status: status, Outcome: OutcomeSuperseded, Identity: current}, nil
	}

	if err == nil {
		// A 401 on another request may have cleared the credential meanwhile
		if current, loadErr := c.store.Load(ctx); loadErr == nil && current.AccessToken != record.AccessToken {
			err = errors.Wrap(porterrors.ErrSessionRejected, "credential cleared during validation")
		}
	}
	if err != nil {
		outcome := OutcomeTransportFailure
		if IsRejection(err) {
			outcome = OutcomeRejected
		}
		changes := c.setStatusLocked(StatusInvalid, nil)
		c.clearStoreLocked(ctx)
		changes = append(changes, c.setStatusLocked(StatusUnauthenticated, nil)...)
		c.mu.Unlock()
		c.notify(changes)

		c.logger.Info().Err(err).Str("outcome", outcome.String()).Msg("stored session invalid, logged out")
		return StartupResult{Status: StatusUnauthenticated, Outcome: outcome, Err: err}, nil
	}

	if err := c.saveLocked(ctx, identity, record.AccessToken); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist refreshed identity")
	}
	changes = c.setStatusLocked(StatusAuthenticated, identity)
	c.mu.Unlock()
	c.notify(changes)

	c.logger.Info().Int64("user_id", identity.ID).Str("role", identity.Role.String()).Msg("session restored")
	return StartupResult{Status: StatusAuthenticated, Outcome: OutcomeValidated, Identity: identity.Clone()}, nil
}

// Login records a backend-confirmed identity. It never calls the backend.
// An empty credential keeps the stored one. The in-memory session is
// updated even when persisting fails; the error is returned so the caller
// can warn that the login will not survive a restart.
func (c *Controller) Login(identity *users.Identity, credential string) error {
	if identity == nil {
		return ErrNilIdentity
	}
	ctx := context.Background()

	c.mu.Lock()
	c.gen++
	if credential == "" {
		record, err := c.store.Load(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("could not read stored credential")
		}
		credential = record.AccessToken
	}
	saveErr := c.saveLocked(ctx, identity, credential)
	changes := c.setStatusLocked(StatusAuthenticated, identity)
	c.mu.Unlock()
	c.notify(changes)

	c.logger.Info().Int64("user_id", identity.ID).Str("role", identity.Role.String()).Msg("logged in")
	return saveErr
}

// Logout clears the session. It cannot fail and makes no network call.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.gen++
	c.clearStoreLocked(context.Background())
	changes := c.setStatusLocked(StatusUnauthenticated, nil)
	c.mu.Unlock()
	c.notify(changes)

	if len(changes) > 0 {
		c.logger.Info().Msg("logged out")
	}
}

// Invalidate clears the session after the backend refused credential. It
// does nothing when the stored credential has changed since the refused
// request was sent, so a late 401 cannot wipe a newer login.
func (c *Controller) Invalidate(credential string) bool {
	ctx := context.Background()

	c.mu.Lock()
	record, err := c.store.Load(ctx)
	if err == nil && record.AccessToken != credential {
		c.mu.Unlock()
		return false
	}
	c.clearStoreLocked(ctx)
	var changes []Change
	if c.status != StatusValidating {
		changes = c.setStatusLocked(StatusUnauthenticated, nil)
	}
	c.mu.Unlock()
	c.notify(changes)

	c.logger.Info().Msg("credential rejected by backend, session cleared")
	return true
}

// Credential returns the stored bearer credential, read fresh from the store
// so writes by another process are seen on the next request.
func (c *Controller) Credential(ctx context.Context) (string, error) {
	record, err := c.store.Load(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Controller.Credential] store.Load")
	}
	return record.AccessToken, nil
}

// CurrentIdentity returns a copy of the logged-in identity, or nil.
func (c *Controller) CurrentIdentity() *users.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.status != StatusAuthenticated {
		return nil
	}
	return c.identity.Clone()
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe registers fn for every state change. fn runs on the goroutine
// that caused the change, after the controller's lock is released.
func (c *Controller) Subscribe(fn func(Change)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// RefreshProfile re-reads the identity from the backend while logged in.
func (c *Controller) RefreshProfile(ctx context.Context, profiles ProfileService) (*users.Identity, error) {
	if c.CurrentIdentity() == nil {
		return nil, ErrNotAuthenticated
	}
	identity, err := profiles.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Controller.RefreshProfile] profiles.Profile")
	}

	c.mu.Lock()
	if c.status != StatusAuthenticated {
		c.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	record, _ := c.store.Load(ctx)
	saveErr := c.saveLocked(ctx, identity, record.AccessToken)
	changes := c.setStatusLocked(StatusAuthenticated, identity)
	c.mu.Unlock()
	c.notify(changes)

	return identity.Clone(), saveErr
}

func (c *Controller) fetchProfile(ctx context.Context, profiles ProfileService) (*users.Identity, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff); err != nil {
				return nil, lastErr
			}
			c.logger.Debug().Int("attempt", attempt).Msg("retrying profile validation")
		}
		identity, err := profiles.Profile(ctx)
		if err == nil && identity == nil {
			err = errors.Wrap(porterrors.ErrSessionRejected, "empty profile response")
		}
		if err == nil {
			return identity, nil
		}
		lastErr = err
		if IsRejection(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Controller) saveLocked(ctx context.Context, identity *users.Identity, credential string) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, "[Controller] encode identity")
	}
	if err := c.store.Save(ctx, sessions.Record{User: data, AccessToken: credential}); err != nil {
		return errors.Wrap(err, "[Controller] store.Save")
	}
	return nil
}

func (c *Controller) clearStoreLocked(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session store")
	}
}

// setStatusLocked applies a transition and returns the change to publish,
// or nothing when the state is unchanged.
func (c *Controller) setStatusLocked(status Status, identity *users.Identity) []Change {
	if status == c.status && status != StatusAuthenticated {
		return nil
	}
	c.status = status
	c.identity = identity.Clone()
	return []Change{{Status: status, Identity: identity.Clone()}}
}

func (c *Controller) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	c.mu.RLock()
	subs := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	for _, change := range changes {
		for _, fn := range subs {
			fn(change)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
