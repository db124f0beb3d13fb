package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Header and cookie names shared with the portal backend.
const (
	CSRFCookieName  = "csrftoken"
	CSRFHeaderName  = "X-CSRFToken"
	RequestIDHeader = "X-Request-ID"
)

// CredentialSource supplies the bearer credential and is told when the
// backend refuses it. auth.Controller implements it.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
	Invalidate(credential string) bool
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport is the Facade every backend request goes through. It attaches
// the stored credential and the CSRF token, and clears the session when the
// backend answers 401. The response itself is always handed back unchanged.
type Transport struct {
	base    http.RoundTripper
	source  CredentialSource
	jar     http.CookieJar
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// Option defines a function type to modify the Transport instance.
type Option func(*Transport)

// WithBase sets the underlying RoundTripper (default http.DefaultTransport).
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithCookieJar sets the jar the CSRF cookie is read from. It should be the
// same jar the http.Client uses.
func WithCookieJar(jar http.CookieJar) Option {
	return func(t *Transport) {
		t.jar = jar
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

func New(source CredentialSource, options ...Option) (*Transport, error) {
	if source == nil {
		return nil, errors.New("[transport.New] credential source is required")
	}
	t := &Transport{
		base:   http.DefaultTransport,
		source: source,
		logger: log.Logger,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A RoundTripper must not modify the caller's request.
	r := req.Clone(req.Context())

	credential, err := t.source.Credential(r.Context())
	if err != nil {
		t.logger.Warn().Err(err).Msg("could not read credential, sending request without it")
		credential = ""
	}
	if credential != "" {
		(&oauth2.Token{AccessToken: credential}).SetAuthHeader(r)
	}
	t.setCSRF(r)
	if r.Header.Get("Content-Type") == "" && r.Body != nil && r.Body != http.NoBody {
		r.Header.Set("Content-Type", "application/json")
	}
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := t.now()
	resp, err := t.base.RoundTrip(r)
	elapsed := t.now().Sub(start)
	if err != nil {
		t.metrics.observe(r.Method, 0, elapsed.Seconds())
		t.logger.Debug().Err(err).Str("method", r.Method).Str("url", r.URL.Redacted()).Msg("backend request failed")
		return nil, err
	}
	t.metrics.observe(r.Method, resp.StatusCode, elapsed.Seconds())

	t.logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", resp.StatusCode).
		Str("request_id", r.Header.Get(RequestIDHeader)).
		Dur("elapsed", elapsed).
		Msg("backend request")

	if resp.StatusCode == http.StatusUnauthorized {
		cleared := t.source.Invalidate(credential)
		t.metrics.authFailure(cleared)
		t.logger.Info().Str("path", r.URL.Path).Bool("cleared", cleared).Msg("backend refused credential")
	}
	return resp, nil
}

// setCSRF mirrors the csrftoken cookie into X-CSRFToken. When the request
// already carries cookies (added by the http.Client from the jar, or brought
// by a proxied browser request) the header must match the cookie sent, so
// the jar is only consulted for requests without a Cookie header.
func (t *Transport) setCSRF(r *http.Request) {
	if r.Header.Get(CSRFHeaderName) != "" {
		return
	}
	if r.Header.Get("Cookie") != "" {
		if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
			r.Header.Set(CSRFHeaderName, c.Value)
		}
		return
	}
	if t.jar == nil {
		return
	}
	for _, c := range t.jar.Cookies(r.URL) {
		if c.Name == CSRFCookieName && c.Value != "" {
			r.Header.Set(CSRFHeaderName, c.Value)
			return
		}
	}
}
