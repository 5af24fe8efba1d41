// Package rbac evaluates role permissions against the live control
// surface. A role holding "*" is granted every permission in the
// universe. Authentication is out of scope: callers supply the role.
package rbac

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

// Permission is a named capability.
type Permission string

const (
	ExecuteTools    Permission = "execute_tools"
	ViewReports     Permission = "view_reports"
	ManageUsers     Permission = "manage_users"
	ConfigureSystem Permission = "configure_system"
	ManageScans     Permission = "manage_scans"
	ViewDashboards  Permission = "view_dashboards"
)

// Universe is every permission "*" expands to, in display order.
var Universe = []Permission{
	ExecuteTools, ViewReports, ManageUsers, ConfigureSystem, ManageScans, ViewDashboards,
}

// ErrUnknownRole is returned when the surface has no control for a role.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Expand returns the effective permissions of rc. Duplicates are dropped
// and order follows the role definition.
func Expand(rc control.RoleControl) []Permission {
	if slices.Contains(rc.Permissions, control.PermissionAll) {
		return slices.Clone(Universe)
	}
	out := make([]Permission, 0, len(rc.Permissions))
	for _, p := range rc.Permissions {
		perm := Permission(p)
		if !slices.Contains(out, perm) {
			out = append(out, perm)
		}
	}
	return out
}

// ListPermissions expands the permissions of role in s.
func ListPermissions(s control.Surface, role control.Role) ([]Permission, error) {
	rc, ok := s.Role(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return Expand(rc), nil
}

// HasPermission reports whether role holds perm in s.
func HasPermission(s control.Surface, role control.Role, perm Permission) (bool, error) {
	perms, err := ListPermissions(s, role)
	if err != nil {
		return false, err
	}
	return slices.Contains(perms, perm), nil
}

// CanAccessFeature reports whether role may use the feature: the role must
// list it in featureAccess and the feature must be enabled.
func CanAccessFeature(s control.Surface, role control.Role, featureID string) (bool, error) {
	rc, ok := s.Role(role)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	f, ok := s.Feature(featureID)
	if !ok || !f.Enabled {
		return false, nil
	}
	return slices.Contains(rc.FeatureAccess, featureID), nil
}
