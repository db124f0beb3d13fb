package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-portal-client/gate"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyDecision stores the gate decision for an admitted screen
	ContextKeyDecision ContextKey = "decision"
)

// RequireSession rejects session endpoints when nobody is logged in.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.services.Controller.CurrentIdentity() == nil {
				writeJSONError(w, "unauthenticated", "login required", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
}

// RequireScreenAccess runs the gate on every screen request. Redirects use
// 302 so the browser re-asks on the next navigation; the identity may have
// changed by then.
func (s *Server) RequireScreenAccess() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := s.services.Gate.Decide(r.URL.Path, s.services.Controller.CurrentIdentity())

			if s.env == "DEV" {
				s.logger.Info().Msgf("[%-19s] %s -> %s %s", colourMethod(r.Method), r.URL.Path, colourDecision(decision.Kind.String()), decision.Target)
			}

			switch decision.Kind {
			case gate.KindNotFound:
				writeJSONError(w, "not_found", "no such screen", http.StatusNotFound)
			case gate.KindRedirect:
				w.Header().Set("Cache-Control", "no-store")
				http.Redirect(w, r, decision.Target, http.StatusFound)
			default:
				ctx := context.WithValue(r.Context(), ContextKeyDecision, decision)
				next(w, r.WithContext(ctx))
			}
		}
	}
}

func decisionFromContext(ctx context.Context) (gate.Decision, bool) {
	d, ok := ctx.Value(ContextKeyDecision).(gate.Decision)
	return d, ok
}
