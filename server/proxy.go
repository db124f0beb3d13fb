package server

import (
	"net/http"
	"net/http/httputil"
	"strconv"
)

// newAPIProxy forwards /api/ to the backend through the client Facade, so
// proxied calls carry the stored credential and a 401 clears the session
// exactly as a direct client call would.
func (s *Server) newAPIProxy() *httputil.ReverseProxy {
	target := s.services.API.BaseURL()
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// The Facade owns the Authorization header.
			pr.Out.Header.Del("Authorization")
		},
		Transport: s.services.API.Transport(),
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode == http.StatusUnauthorized {
				cleared := s.services.Controller.CurrentIdentity() == nil
				resp.Header.Set(HeaderSessionCleared, strconv.FormatBool(cleared))
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logError(r.Method, r.URL.Path, err)
			writeJSONError(w, "backend_unreachable", "portal backend unreachable", http.StatusBadGateway)
		},
	}
}

func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.proxy.ServeHTTP(w, r)
	}
}
