package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-portal-client/auth"
	"github.com/jrsteele09/go-portal-client/gate"
	"github.com/jrsteele09/go-portal-client/internal/config"
	"github.com/jrsteele09/go-portal-client/portalapi"
	"github.com/jrsteele09/go-portal-client/server"
	fakesessionrepo "github.com/jrsteele09/go-portal-client/sessions/repofakes"
	"github.com/jrsteele09/go-portal-client/transport"
	"github.com/jrsteele09/go-portal-client/users"
)

const testToken = "tok123"

// backend is a minimal portal backend.
type backend struct {
	mu       sync.Mutex
	lastAuth string
	lastCSRF string
	revoked  bool
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/csrf/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-1", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		switch body["username"] {
		case "ali":
			_, _ = io.WriteString(w, `{"identity":{"id":1,"role":"STUDENT","first_name":"Ali"},"access_token":"`+testToken+`"}`)
		case "new":
			_, _ = io.WriteString(w, `{"identity":{"id":2,"role":"DOCTOR","first_login_required":true},"access_token":"`+testToken+`"}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Invalid Credentials"}`)
		}
	})
	mux.HandleFunc("POST /api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/student/quiz/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastCSRF = r.Header.Get("X-CSRFToken")
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/student/grades/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastAuth = r.Header.Get("Authorization")
		revoked := b.revoked
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if revoked {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid"}`)
			return
		}
		_, _ = io.WriteString(w, `[{"course":"Statics","grade":"A"}]`)
	})
	return mux
}

type fixture struct {
	backend    *backend
	controller *auth.Controller
	store      *fakesessionrepo.FakeStore
	url        string
	client     *http.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173")

	b := &backend{}
	backendSrv := httptest.NewServer(b.handler())
	t.Cleanup(backendSrv.Close)

	store := fakesessionrepo.NewFakeStore()
	controller, err := auth.NewController(store, auth.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics, err := transport.NewMetrics(reg)
	require.NoError(t, err)
	api, err := portalapi.New(backendSrv.URL, controller, portalapi.WithMetrics(metrics), portalapi.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	flows, err := auth.NewFlows(controller, api)
	require.NoError(t, err)

	srv, err := server.New(config.New(), server.Services{
		Controller: controller,
		Flows:      flows,
		Gate:       gate.NewPortal(),
		API:        api,
	}, server.WithGatherer(reg), server.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	gateway := httptest.NewServer(srv)
	t.Cleanup(gateway.Close)

	return &fixture{
		backend:    b,
		controller: controller,
		store:      store,
		url:        gateway.URL,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.url+path, r)
	require.NoError(t, err)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNew(t *testing.T) {
	_, err := server.New(nil, server.Services{})
	require.Error(t, err)
	t.Setenv("FOLDER", t.TempDir())
	_, err = server.New(config.New(), server.Services{})
	require.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodGet, server.RouteSession, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthenticated", decode[server.SessionResponse](t, resp).Status)

	resp = f.do(t, http.MethodPost, server.RouteSessionLogin, `{"username":"ali","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[map[string]any](t, resp)
	require.Equal(t, users.RouteStudentDashboard, login["next"])
	require.Equal(t, testToken, f.store.Record().AccessToken)

	resp = f.do(t, http.MethodGet, server.RouteSession, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode[server.SessionResponse](t, resp)
	require.Equal(t, users.RoleStudent, session.Identity.Role)
	require.Equal(t, users.RouteStudentDashboard, session.Landing)

	resp = f.do(t, http.MethodPost, server.RouteSessionLogout, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.True(t, f.store.Record().IsEmpty())
	require.Nil(t, f.controller.CurrentIdentity())
}

func TestLoginErrors(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, server.RouteSessionLogin, `{"username":"ali","password":"nope"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid Credentials", decode[map[string]string](t, resp)["error_description"])

	resp = f.do(t, http.MethodPost, server.RouteSessionLogin, `{"username":"","password":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, server.RouteSessionLogin, `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionEndpointsRequireLogin(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, server.RouteSessionPassword, `{}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = f.do(t, http.MethodPatch, server.RouteSessionProfile, `{}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestScreens(t *testing.T) {
	f := setup(t)

	t.Run("Logged out", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/student/dashboard", "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, gate.RouteLogin, resp.Header.Get("Location"))

		resp = f.do(t, http.MethodGet, "/about", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		screen := decode[server.ScreenResponse](t, resp)
		require.True(t, screen.Public)
		require.Nil(t, screen.Identity)
	})

	t.Run("Unknown screen", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/does/not/exist", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	require.NoError(t, f.controller.Login(&users.Identity{ID: 1, Role: users.RoleStudent}, testToken))

	t.Run("Role mismatch lands on own dashboard", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/admin/users", "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, users.RouteStudentDashboard, resp.Header.Get("Location"))
	})

	t.Run("Own screen with params", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/student/quiz/7", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
		screen := decode[server.ScreenResponse](t, resp)
		require.Equal(t, "student-quiz-quizId", screen.Screen)
		require.Equal(t, map[string]string{"quizId": "7"}, screen.Params)
		require.Equal(t, users.RoleStudent, screen.Identity.Role)
	})
}

func TestFirstLoginFlow(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, server.RouteSessionLogin, `{"username":"new","password":"29801011234567"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, gate.RouteChangePassword, decode[map[string]any](t, resp)["next"])

	resp = f.do(t, http.MethodGet, "/doctor/dashboard", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, gate.RouteChangePassword, resp.Header.Get("Location"))
}

func TestAPIProxy(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.controller.Login(&users.Identity{ID: 1, Role: users.RoleStudent}, testToken))

	t.Run("Credential attached", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/student/grades/", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		f.backend.mu.Lock()
		require.Equal(t, "Bearer "+testToken, f.backend.lastAuth)
		f.backend.mu.Unlock()
	})

	t.Run("CSRF header matches the browser's cookie", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, f.url+"/api/student/quiz/", strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("Cookie", "sessionid=s1; csrftoken=csrf-browser")
		resp, err := f.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		f.backend.mu.Lock()
		require.Equal(t, "csrf-browser", f.backend.lastCSRF)
		f.backend.mu.Unlock()
	})

	t.Run("401 passes through and clears the session", func(t *testing.T) {
		f.backend.mu.Lock()
		f.backend.revoked = true
		f.backend.mu.Unlock()

		resp := f.do(t, http.MethodGet, "/api/student/grades/", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "true", resp.Header.Get(server.HeaderSessionCleared))
		require.Equal(t, "Given token not valid", decode[map[string]string](t, resp)["detail"])
		require.True(t, f.store.Record().IsEmpty())

		resp = f.do(t, http.MethodGet, "/student/grades", "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, gate.RouteLogin, resp.Header.Get("Location"))
	})
}

func TestCorsPreflight(t *testing.T) {
	f := setup(t)

	req, err := http.NewRequest(http.MethodOptions, f.url+"/api/student/grades/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-CSRFToken")
}

func TestMetrics(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.controller.Login(&users.Identity{ID: 1, Role: users.RoleStudent}, testToken))
	f.do(t, http.MethodGet, "/api/student/grades/", "")

	resp := f.do(t, http.MethodGet, server.RouteMetrics, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "portal_client_requests_total")
}
