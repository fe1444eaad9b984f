package security

import (
	"sort"

	"github.com/22maksim/task-manager/internal/model"
)

// Permission is a fine-grained capability carried in access tokens.
type Permission string

const (
	PermRead    Permission = "permission:read"
	PermWrite   Permission = "permission:write"
	PermUpdate  Permission = "permission:update"
	PermDelete  Permission = "permission:delete"
	PermComment Permission = "permission:comment"
	PermStatus  Permission = "permission:status"
)

// RolePrefix marks role authorities so they never collide with permissions.
const RolePrefix = "ROLE_"

var basePermissions = []Permission{PermComment, PermStatus}

// rolePermissions must have an entry for every value of model.Roles.
var rolePermissions = map[model.Role][]Permission{
	model.RoleUser:  basePermissions,
	model.RoleAdmin: append([]Permission{PermRead, PermWrite, PermUpdate, PermDelete}, basePermissions...),
}

// PermissionsFor returns the permissions granted to role, sorted.  An
// undefined role has none.  The result is a fresh slice.
func PermissionsFor(role model.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionStrings is PermissionsFor as plain strings, the form embedded in tokens.
func PermissionStrings(role model.Role) []string {
	perms := PermissionsFor(role)
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// RoleAuthority is the synthetic role marker, e.g. "ROLE_ADMIN".
func RoleAuthority(role model.Role) string { return RolePrefix + string(role) }

// AuthoritiesFor returns the permissions of role followed by its role marker.
func AuthoritiesFor(role model.Role) []string {
	return append(PermissionStrings(role), RoleAuthority(role))
}
