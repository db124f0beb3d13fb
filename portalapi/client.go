package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
	"github.com/jrsteele09/go-portal-client/transport"
	"github.com/jrsteele09/go-portal-client/users"
)

// Backend auth endpoints.
const (
	PathLogin          = "/api/auth/login/"
	PathLogout         = "/api/auth/logout/"
	PathProfile        = "/api/auth/profile/"
	PathChangePassword = "/api/auth/change-password/"
	PathCSRF           = "/api/auth/csrf/"
)

const maxErrorBody = 64 << 10

// Client talks to the portal backend. Every request goes through the
// transport Facade and shares one cookie jar, so the backend's session and
// CSRF cookies travel with each call.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     http.CookieJar
	facade  *transport.Transport
	logger  zerolog.Logger
}

type options struct {
	timeout time.Duration
	base    http.RoundTripper
	metrics *transport.Metrics
	logger  zerolog.Logger
}

// Option defines a function type to modify the Client construction.
type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithBaseTransport sets the RoundTripper underneath the Facade.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

func WithMetrics(m *transport.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a client for the backend at baseURL. source supplies the
// bearer credential and is invalidated on 401.
func New(baseURL string, source transport.CredentialSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[portalapi.New] invalid base URL %q", baseURL)
	}

	o := options{timeout: 30 * time.Second, base: http.DefaultTransport, logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "[portalapi.New] cookiejar.New")
	}
	facade, err := transport.New(source,
		transport.WithBase(o.base),
		transport.WithCookieJar(jar),
		transport.WithMetrics(o.metrics),
		transport.WithLogger(o.logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[portalapi.New] transport.New")
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Transport: facade, Jar: jar, Timeout: o.timeout},
		jar:     jar,
		facade:  facade,
		logger:  o.logger,
	}, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Transport returns the Facade so other HTTP consumers (the gateway's
// reverse proxy) share its credential handling.
func (c *Client) Transport() http.RoundTripper {
	return c.facade
}

// loginResponse accepts both the bare user object the backend returns for
// cookie sessions and an envelope carrying a bearer token.
type loginResponse struct {
	Identity    *users.Identity `json:"identity"`
	User        *users.Identity `json:"user"`
	AccessToken string          `json:"access_token"`
	Access      string          `json:"access"`
	Token       string          `json:"token"`
}

// Login posts credentials and returns the confirmed identity and, when the
// backend issues one, the bearer credential.
func (c *Client) Login(ctx context.Context, username, password string) (*users.Identity, string, error) {
	if err := c.ensureCSRF(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("csrf prefetch failed")
	}

	var raw json.RawMessage
	body := map[string]string{"username": username, "password": password}
	if err := c.Do(ctx, http.MethodPost, PathLogin, body, &raw); err != nil {
		return nil, "", err
	}

	var env loginResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", errors.Wrap(err, "[Client.Login] decode response")
	}
	identity := env.Identity
	if identity == nil {
		identity = env.User
	}
	if identity == nil {
		identity = &users.Identity{}
		if err := json.Unmarshal(raw, identity); err != nil {
			return nil, "", errors.Wrap(err, "[Client.Login] decode identity")
		}
		for _, k := range []string{"access_token", "access", "token", "refresh"} {
			delete(identity.Extra, k)
		}
		if len(identity.Extra) == 0 {
			identity.Extra = nil
		}
	}

	credential := firstNonEmpty(env.AccessToken, env.Access, env.Token)
	return identity, credential, nil
}

func (c *Client) Profile(ctx context.Context) (*users.Identity, error) {
	return c.identity(ctx, http.MethodGet, PathProfile, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, patch users.ProfilePatch) (*users.Identity, error) {
	if err := c.ensureCSRF(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("csrf prefetch failed")
	}
	return c.identity(ctx, http.MethodPatch, PathProfile, patch)
}

// identity calls an endpoint answering with the user object. A 2xx with an
// empty body, null, or an object carrying neither id nor role is not an
// accepted session.
func (c *Client) identity(ctx context.Context, method, path string, in any) (*users.Identity, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, method, path, in, &raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, porterrors.Wrapf(porterrors.ErrSessionRejected, "%s %s: empty response", method, path)
		}
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, porterrors.Wrapf(porterrors.ErrSessionRejected, "%s %s: empty response", method, path)
	}

	var identity users.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, errors.Wrapf(err, "[Client] decode identity %s %s", method, path)
	}
	if identity.ID == 0 && identity.Role == "" {
		return nil, porterrors.Wrapf(porterrors.ErrSessionRejected, "%s %s: response carries no user", method, path)
	}
	return &identity, nil
}

func (c *Client) ChangePassword(ctx context.Context, change users.PasswordChange) error {
	if err := c.ensureCSRF(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("csrf prefetch failed")
	}
	return c.Do(ctx, http.MethodPost, PathChangePassword, change, nil)
}

// Logout ends the backend's cookie session.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, PathLogout, nil, nil)
}

// CSRF asks the backend to set the csrftoken cookie.
func (c *Client) CSRF(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, PathCSRF, nil, nil)
}

// Do sends a JSON request to path and decodes a 2xx JSON answer into out.
// Non-2xx answers become *APIError; a 401 has already cleared the session
// by the time Do returns.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "[Client.Do] encode %s %s", method, path)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.Raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[Client.Do] decode %s %s", method, path)
	}
	return nil
}

// Raw sends a request to path and returns the response as is. The caller
// closes the body.
func (c *Client) Raw(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Raw] http.NewRequest")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, porterrors.Wrapf(porterrors.ErrTransport, "%s %s: %v", method, path, err)
	}
	return resp, nil
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "[Client] invalid path %q", path)
	}
	if ref.IsAbs() {
		return "", errors.Errorf("[Client] path %q must be relative to the backend", path)
	}
	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) ensureCSRF(ctx context.Context) error {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == transport.CSRFCookieName {
			return nil
		}
	}
	return c.CSRF(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
