package gate

import (
	"strings"

	"github.com/jrsteele09/go-portal-client/users"
)

// Screens outside the role dashboards.
const (
	RouteLogin          = "/login"
	RouteChangePassword = "/change-password"
	RouteProfile        = "/profile"
)

var (
	studentOnly        = []users.RoleType{users.RoleStudent}
	doctorOnly         = []users.RoleType{users.RoleDoctor}
	studentAffairsDesk = []users.RoleType{users.RoleStudentAffairs, users.RoleStaff}
	staffAffairsOnly   = []users.RoleType{users.RoleStaffAffairs}
	adminOnly          = []users.RoleType{users.RoleAdmin}
)

// PortalRoutes is the faculty portal's screen table.
func PortalRoutes() []Route {
	routes := []Route{
		// Public site
		{Pattern: "/", Name: "home", Public: true},
		{Pattern: RouteLogin, Name: "login", Public: true},
		{Pattern: "/staff", Name: "staff-directory", Public: true},
		{Pattern: "/contact", Name: "contact", Public: true},
		{Pattern: "/about", Name: "about", Public: true},
		{Pattern: "/dean-word", Name: "dean-word", Public: true},
		{Pattern: "/vision-mission", Name: "vision-mission", Public: true},
		{Pattern: "/regulations", Name: "regulations", Public: true},
		{Pattern: "/ethics", Name: "ethics", Public: true},
		{Pattern: "/departments", Name: "departments", Public: true},
		{Pattern: "/departments/civil", Name: "department-civil", Public: true},
		{Pattern: "/departments/arch", Name: "department-arch", Public: true},
		{Pattern: "/departments/electrical", Name: "department-electrical", Public: true},

		// Any logged-in user
		{Pattern: RouteChangePassword, Name: "change-password"},
		{Pattern: RouteProfile, Name: "profile"},
	}

	routes = append(routes, section(studentOnly, "student",
		"dashboard", "grades", "attendance", "materials", "exams", "quizzes", "quiz/:quizId")...)
	routes = append(routes, section(doctorOnly, "doctor",
		"dashboard", "courses", "courses/:courseId", "courses/:courseId/manage",
		"courses/:courseId/upload-grades", "courses/:courseId/quiz")...)
	routes = append(routes, Route{Pattern: "/staff/dashboard", Name: "staff-dashboard", Roles: studentAffairsDesk})
	routes = append(routes, section(studentAffairsDesk, "student-affairs",
		"dashboard", "hierarchy", "upload-students", "certificates", "news", "exam-grades", "grades")...)
	routes = append(routes, Route{Pattern: "/staff-affairs", Name: "staff-affairs", Roles: staffAffairsOnly})
	routes = append(routes, section(staffAffairsOnly, "staff-affairs",
		"dashboard", "upload-doctors", "upload-staff", "assign-doctors", "view-users",
		"academic-structure", "manage-doctors")...)
	routes = append(routes, section(adminOnly, "admin",
		"dashboard", "academic-years", "grading-templates", "departments", "years", "levels",
		"users", "academic-structure", "approvals", "pending-approvals", "news", "deletion-requests")...)
	return routes
}

func section(roles []users.RoleType, prefix string, screens ...string) []Route {
	routes := make([]Route, 0, len(screens))
	for _, screen := range screens {
		routes = append(routes, Route{
			Pattern: "/" + prefix + "/" + screen,
			Name:    prefix + "-" + strings.NewReplacer(":", "", "/", "-").Replace(screen),
			Roles:   roles,
		})
	}
	return routes
}
