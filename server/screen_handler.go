package server

import (
	"net/http"

	"github.com/jrsteele09/go-portal-client/users"
)

// ScreenResponse describes an admitted screen. The gateway does not render
// the portal UI; it tells the front end which screen to mount.
type ScreenResponse struct {
	Screen   string            `json:"screen"`
	Path     string            `json:"path"`
	Params   map[string]string `json:"params,omitempty"`
	Public   bool              `json:"public"`
	Identity *users.Identity   `json:"identity,omitempty"`
}

func (s *Server) ScreenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision, ok := decisionFromContext(r.Context())
		if !ok || decision.Route == nil {
			writeJSONError(w, "not_found", "no such screen", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ScreenResponse{
			Screen:   decision.Route.Name,
			Path:     decision.Target,
			Params:   decision.Params,
			Public:   decision.Route.Public,
			Identity: s.services.Controller.CurrentIdentity(),
		})
	}
}
