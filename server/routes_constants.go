package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Session endpoints
	RouteSession         = "/session"
	RouteSessionLogin    = "/session/login"
	RouteSessionLogout   = "/session/logout"
	RouteSessionPassword = "/session/password"
	RouteSessionProfile  = "/session/profile"
	RouteSessionRefresh  = "/session/refresh"

	// Backend API proxy (subtree)
	RouteAPI = "/api/"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"

	// Screens (everything else, resolved by the gate)
	RouteScreens = "/{screen...}"
)

// HeaderSessionCleared is set on proxied 401 responses once the local
// session has been cleared, so the caller can navigate to the login screen.
const HeaderSessionCleared = "X-Portal-Session-Cleared"
