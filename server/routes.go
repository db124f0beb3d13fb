package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// SESSION
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionPassword, ChainMiddleware(s.ChangePasswordHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("PATCH "+RouteSessionProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteSessionRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("OPTIONS "+RouteSession+"/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Backend API, credential attached by the Facade. Registered per method
	// so it does not conflict with the screen catch-all.
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"} {
		s.RegisterRouteHandler(method+" "+RouteAPI, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))
	}

	// OPERATIONS
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// SCREENS
	s.RegisterRouteHandler("GET "+RouteScreens, ChainMiddleware(s.ScreenHandler(), s.HTMLMiddleWare(s.RequireScreenAccess())...))
}
