package user

import "github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Reviews attendance and excuses points
	RoleHR       Role = "hr"       // Uploads punch logs and manages points
	RoleEmployee Role = "employee" // Regular employee
)

// RolePermissions maps token roles to the permissions handed to the engine.
var RolePermissions = map[Role][]auth.Permission{
	RoleOwner: {
		auth.PermissionPunchUpload,
		auth.PermissionAttendanceView,
		auth.PermissionAttendanceVerify,
		auth.PermissionAttendanceReprocess,
		auth.PermissionPointView,
		auth.PermissionPointExcuse,
		auth.PermissionPointManage,
	},
	RoleHR: {
		auth.PermissionPunchUpload,
		auth.PermissionAttendanceView,
		auth.PermissionAttendanceVerify,
		auth.PermissionAttendanceReprocess,
		auth.PermissionPointView,
		auth.PermissionPointManage,
	},
	RoleManager: {
		auth.PermissionAttendanceView,
		auth.PermissionAttendanceVerify,
		auth.PermissionPointView,
		auth.PermissionPointExcuse,
	},
	RoleEmployee: {},
}

// PermissionsFor returns a copy of the role's permissions; unknown roles get none.
func PermissionsFor(role Role) []auth.Permission {
	permissions := RolePermissions[role]
	out := make([]auth.Permission, len(permissions))
	copy(out, permissions)
	return out
}
