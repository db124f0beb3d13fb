package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-portal-client/auth"
	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
	"github.com/jrsteele09/go-portal-client/portalapi"
	"github.com/jrsteele09/go-portal-client/users"
)

const maxFormBody = 1 << 20

// SessionResponse is the body of GET /session.
type SessionResponse struct {
	Status   string          `json:"status"`
	Identity *users.Identity `json:"identity,omitempty"`
	Landing  string          `json:"landing,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Identity *users.Identity `json:"identity"`
	Next     string          `json:"next"`
}

type profileRequest struct {
	users.ProfilePatch
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// SessionHandler reports who is logged in.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := s.services.Controller.CurrentIdentity()
		if identity == nil {
			writeJSON(w, http.StatusUnauthorized, SessionResponse{Status: s.services.Controller.Status().String()})
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			Status:   auth.StatusAuthenticated.String(),
			Identity: identity,
			Landing:  identity.LandingRoute(),
		})
	}
}

// LoginHandler exchanges credentials with the backend and opens a session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.services.Flows.Login(r.Context(), req.Username, req.Password)
		if err != nil && result == nil {
			s.writeFlowError(w, r, err)
			return
		}
		if err != nil {
			// Logged in, but not persisted
			s.logError(r.Method, r.URL.Path, err)
		}
		writeJSON(w, http.StatusOK, loginResponse{Identity: result.Identity, Next: result.Next})
	}
}

// LogoutHandler always clears the local session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Flows.Logout(r.Context()); err != nil {
			s.logError(r.Method, r.URL.Path, err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req users.PasswordChange
		if !decodeJSON(w, r, &req) {
			return
		}
		next, err := s.services.Flows.ChangePassword(r.Context(), req)
		if err != nil && next == "" {
			s.writeFlowError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"next": next})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		patch := req.ProfilePatch
		patch.ConfirmPassword = req.ConfirmPassword

		identity, err := s.services.Flows.UpdateProfile(r.Context(), patch)
		if err != nil && identity == nil {
			s.writeFlowError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, identity)
	}
}

// RefreshHandler re-reads the profile from the backend.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.services.Flows.Refresh(r.Context())
		if err != nil && identity == nil {
			s.writeFlowError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, identity)
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"session": s.services.Controller.Status().String(),
		})
	}
}

// writeFlowError maps flow errors to HTTP answers. Backend answers keep
// their status and message.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *portalapi.APIError
	switch {
	case porterrors.As(err, &apiErr):
		writeJSONError(w, "backend_error", apiErr.Message, apiErr.Status)
	case porterrors.Is(err, auth.ErrMissingFields), porterrors.Is(err, porterrors.ErrValidation):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case porterrors.Is(err, auth.ErrNotAuthenticated):
		writeJSONError(w, "unauthenticated", "login required", http.StatusUnauthorized)
	case porterrors.Is(err, porterrors.ErrTransport):
		s.logError(r.Method, r.URL.Path, err)
		writeJSONError(w, "backend_unreachable", "portal backend unreachable", http.StatusBadGateway)
	default:
		s.logError(r.Method, r.URL.Path, err)
		writeJSONError(w, "internal_error", "internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBody))
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, "invalid_request", "malformed JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
