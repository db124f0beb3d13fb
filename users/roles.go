package users

import "strings"

// RoleType is the role tag the backend assigns to every account.
type RoleType string

const (
	RoleStudent        RoleType = "STUDENT"
	RoleDoctor         RoleType = "DOCTOR"          // Instructor
	RoleStudentAffairs RoleType = "STUDENT_AFFAIRS" // Student-affairs office
	RoleStaffAffairs   RoleType = "STAFF_AFFAIRS"   // Staff-affairs office
	RoleStaff          RoleType = "STAFF"           // Legacy tag, behaves as student affairs
	RoleAdmin          RoleType = "ADMIN"
)

// Landing screens per role
const (
	RouteHome                    = "/"
	RouteStudentDashboard        = "/student/dashboard"
	RouteDoctorDashboard         = "/doctor/dashboard"
	RouteStudentAffairsDashboard = "/student-affairs/dashboard"
	RouteStaffAffairsDashboard   = "/staff-affairs/dashboard"
	RouteAdminDashboard          = "/admin/dashboard"
)

var landingRoutes = map[RoleType]string{
	RoleStudent:        RouteStudentDashboard,
	RoleDoctor:         RouteDoctorDashboard,
	RoleStudentAffairs: RouteStudentAffairsDashboard,
	RoleStaff:          RouteStudentAffairsDashboard,
	RoleStaffAffairs:   RouteStaffAffairsDashboard,
	RoleAdmin:          RouteAdminDashboard,
}

// AllRoles lists every role tag the backend issues.
func AllRoles() []RoleType {
	return []RoleType{RoleStudent, RoleDoctor, RoleStudentAffairs, RoleStaffAffairs, RoleStaff, RoleAdmin}
}

func ParseRole(s string) (RoleType, bool) {
	r := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := landingRoutes[r]
	return r, ok
}

func (r RoleType) Valid() bool {
	_, ok := landingRoutes[r]
	return ok
}

func (r RoleType) LandingRoute() string {
	if route, ok := landingRoutes[r]; ok {
		return route
	}
	return RouteHome
}

func (r RoleType) String() string {
	return string(r)
}
