package gate

import (
	"path"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-portal-client/users"
)

// Route is one screen and who may open it. A route that is not Public and
// has no Roles admits any logged-in identity.
type Route struct {
	Pattern string           // Path with optional :param segments
	Name    string           // Screen name reported on admit
	Roles   []users.RoleType // Allowed roles; empty means any identity
	Public  bool             // Open without logging in
}

// Kind is the gate's verdict.
type Kind int

const (
	KindAdmit Kind = iota
	KindRedirect
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAdmit:
		return "admit"
	case KindRedirect:
		return "redirect"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one navigation.
type Decision struct {
	Kind   Kind
	Target string            // Redirect target; the requested path on admit
	Route  *Route            // Matched route, nil when not found
	Params map[string]string // Values of :param segments
}

type compiledRoute struct {
	route    Route
	segments []string
}

// Gate decides every navigation from the identity passed in. It holds no
// session state, so a change of identity takes effect on the next call.
type Gate struct {
	routes []compiledRoute
}

func New(routes []Route) (*Gate, error) {
	seen := make(map[string]bool, len(routes))
	g := &Gate{routes: make([]compiledRoute, 0, len(routes))}
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, errors.Errorf("[gate.New] pattern %q must start with /", r.Pattern)
		}
		if seen[r.Pattern] {
			return nil, errors.Errorf("[gate.New] duplicate pattern %q", r.Pattern)
		}
		for _, role := range r.Roles {
			if !role.Valid() {
				return nil, errors.Errorf("[gate.New] pattern %q: unknown role %q", r.Pattern, role)
			}
		}
		seen[r.Pattern] = true
		r.Roles = slices.Clone(r.Roles)
		g.routes = append(g.routes, compiledRoute{route: r, segments: split(r.Pattern)})
	}
	return g, nil
}

// NewPortal returns a gate over PortalRoutes.
func NewPortal() *Gate {
	g, err := New(PortalRoutes())
	if err != nil {
		panic(err)
	}
	return g
}

// Routes returns a copy of the route table.
func (g *Gate) Routes() []Route {
	routes := make([]Route, 0, len(g.routes))
	for _, c := range g.routes {
		r := c.route
		r.Roles = slices.Clone(r.Roles)
		routes = append(routes, r)
	}
	return routes
}

// Decide admits or redirects a navigation to requested for identity.
//   - unknown screen: not found
//   - public screen: admit
//   - nobody logged in: redirect to /login
//   - first login pending: redirect to /change-password
//   - role not allowed: redirect to the identity's own landing screen
func (g *Gate) Decide(requested string, identity *users.Identity) Decision {
	route, params, ok := g.Match(requested)
	if !ok {
		return Decision{Kind: KindNotFound}
	}
	admit := Decision{Kind: KindAdmit, Target: cleanPath(requested), Route: route, Params: params}

	switch {
	case route.Public:
		return admit
	case identity == nil:
		return Decision{Kind: KindRedirect, Target: RouteLogin, Route: route, Params: params}
	case identity.FirstLoginRequired && route.Pattern != RouteChangePassword:
		return Decision{Kind: KindRedirect, Target: RouteChangePassword, Route: route, Params: params}
	case len(route.Roles) > 0 && !slices.Contains(route.Roles, identity.Role):
		return Decision{Kind: KindRedirect, Target: identity.LandingRoute(), Route: route, Params: params}
	default:
		return admit
	}
}

// Match finds the route for requested. Literal segments beat :param
// segments when both match.
func (g *Gate) Match(requested string) (*Route, map[string]string, bool) {
	parts := split(cleanPath(requested))

	var best *compiledRoute
	var bestParams map[string]string
	bestLiterals := -1
	for i := range g.routes {
		c := &g.routes[i]
		params, literals, ok := matchSegments(c.segments, parts)
		if !ok || literals <= bestLiterals {
			continue
		}
		best, bestParams, bestLiterals = c, params, literals
	}
	if best == nil {
		return nil, nil, false
	}
	r := best.route
	r.Roles = slices.Clone(r.Roles)
	return &r, bestParams, true
}

func matchSegments(pattern, parts []string) (map[string]string, int, bool) {
	if len(pattern) != len(parts) {
		return nil, 0, false
	}
	var params map[string]string
	literals := 0
	for i, seg := range pattern {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if parts[i] == "" {
				return nil, 0, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, 0, false
		}
		literals++
	}
	return params, literals, true
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func split(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}
