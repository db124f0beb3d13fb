package gate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-portal-client/gate"
	"github.com/jrsteele09/go-portal-client/users"
)

func identity(role users.RoleType) *users.Identity {
	return &users.Identity{ID: 1, Role: role}
}

func TestNew(t *testing.T) {
	t.Run("Pattern must be absolute", func(t *testing.T) {
		_, err := gate.New([]gate.Route{{Pattern: "student/dashboard"}})
		require.Error(t, err)
	})

	t.Run("Duplicate pattern", func(t *testing.T) {
		_, err := gate.New([]gate.Route{{Pattern: "/a"}, {Pattern: "/a"}})
		require.Error(t, err)
	})

	t.Run("Unknown role", func(t *testing.T) {
		_, err := gate.New([]gate.Route{{Pattern: "/a", Roles: []users.RoleType{"JANITOR"}}})
		require.Error(t, err)
	})

	t.Run("Portal table is valid", func(t *testing.T) {
		require.NotPanics(t, func() { gate.NewPortal() })
	})
}

func TestDecide(t *testing.T) {
	g := gate.NewPortal()

	tests := []struct {
		name     string
		path     string
		identity *users.Identity
		kind     gate.Kind
		target   string
	}{
		{name: "Public page without login", path: "/about", kind: gate.KindAdmit, target: "/about"},
		{name: "Public page with login", path: "/departments/civil", identity: identity(users.RoleAdmin), kind: gate.KindAdmit, target: "/departments/civil"},
		{name: "Protected page without login", path: "/student/grades", kind: gate.KindRedirect, target: gate.RouteLogin},
		{name: "Profile without login", path: "/profile", kind: gate.KindRedirect, target: gate.RouteLogin},
		{name: "Profile for any role", path: "/profile", identity: identity(users.RoleDoctor), kind: gate.KindAdmit, target: "/profile"},
		{name: "Student on own screen", path: "/student/dashboard", identity: identity(users.RoleStudent), kind: gate.KindAdmit, target: "/student/dashboard"},
		{name: "Student on admin screen", path: "/admin/users", identity: identity(users.RoleStudent), kind: gate.KindRedirect, target: users.RouteStudentDashboard},
		{name: "Doctor on student screen", path: "/student/quiz/12", identity: identity(users.RoleDoctor), kind: gate.KindRedirect, target: users.RouteDoctorDashboard},
		{name: "Legacy staff on student affairs", path: "/student-affairs/news", identity: identity(users.RoleStaff), kind: gate.KindAdmit, target: "/student-affairs/news"},
		{name: "Staff affairs root", path: "/staff-affairs", identity: identity(users.RoleStaffAffairs), kind: gate.KindAdmit, target: "/staff-affairs"},
		{name: "Admin on staff affairs", path: "/staff-affairs/view-users", identity: identity(users.RoleAdmin), kind: gate.KindRedirect, target: users.RouteAdminDashboard},
		{name: "Unknown role lands home", path: "/admin/dashboard", identity: identity("VISITOR"), kind: gate.KindRedirect, target: users.RouteHome},
		{name: "Unknown screen", path: "/nope", identity: identity(users.RoleAdmin), kind: gate.KindNotFound},
		{name: "Trailing slash and query", path: "/doctor/courses/?page=2", identity: identity(users.RoleDoctor), kind: gate.KindAdmit, target: "/doctor/courses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Decide(tt.path, tt.identity)
			require.Equal(t, tt.kind, d.Kind)
			require.Equal(t, tt.target, d.Target)
		})
	}
}

// A student asking for an admin screen is sent to the student dashboard,
// never to the admin screen and never to an error.
func TestDecide_RoleMismatchNavigation(t *testing.T) {
	g, err := gate.New([]gate.Route{
		{Pattern: "/admin/dashboard", Roles: []users.RoleType{users.RoleAdmin}},
		{Pattern: "/student/dashboard", Roles: []users.RoleType{users.RoleStudent}},
	})
	require.NoError(t, err)

	d := g.Decide("/admin/dashboard", &users.Identity{Role: users.RoleStudent})
	require.Equal(t, gate.KindRedirect, d.Kind)
	require.Equal(t, "/student/dashboard", d.Target)
	require.NotEqual(t, "/admin/dashboard", d.Target)
}

func TestDecide_FirstLogin(t *testing.T) {
	g := gate.NewPortal()
	pending := &users.Identity{ID: 2, Role: users.RoleStudent, FirstLoginRequired: true}

	d := g.Decide("/student/dashboard", pending)
	require.Equal(t, gate.KindRedirect, d.Kind)
	require.Equal(t, gate.RouteChangePassword, d.Target)

	d = g.Decide(gate.RouteChangePassword, pending)
	require.Equal(t, gate.KindAdmit, d.Kind)

	d = g.Decide("/contact", pending)
	require.Equal(t, gate.KindAdmit, d.Kind)

	// Re-evaluated per call: once the flag clears the dashboard opens.
	pending.FirstLoginRequired = false
	d = g.Decide("/student/dashboard", pending)
	require.Equal(t, gate.KindAdmit, d.Kind)
}

func TestMatch(t *testing.T) {
	g := gate.NewPortal()

	t.Run("Params are extracted", func(t *testing.T) {
		route, params, ok := g.Match("/doctor/courses/42/upload-grades")
		require.True(t, ok)
		require.Equal(t, "/doctor/courses/:courseId/upload-grades", route.Pattern)
		require.Equal(t, map[string]string{"courseId": "42"}, params)
	})

	t.Run("Literal beats param", func(t *testing.T) {
		g, err := gate.New([]gate.Route{
			{Pattern: "/doctor/courses/:courseId", Name: "detail"},
			{Pattern: "/doctor/courses/new", Name: "new"},
		})
		require.NoError(t, err)
		route, _, ok := g.Match("/doctor/courses/new")
		require.True(t, ok)
		require.Equal(t, "new", route.Name)
	})

	t.Run("Route copies are independent", func(t *testing.T) {
		route, _, ok := g.Match("/admin/news")
		require.True(t, ok)
		route.Roles[0] = users.RoleStudent

		d := g.Decide("/admin/news", identity(users.RoleStudent))
		require.Equal(t, gate.KindRedirect, d.Kind)
	})
}
