package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles known to the dashboard. RoleAdmin passes every check.
const (
	RoleAdmin          = "admin"
	RoleSuperAdmin     = "super_admin"
	RoleWarehouseAdmin = "warehouse_admin"
	RoleFacilityAdmin  = "facility_admin"
	RoleFacilityUser   = "facility_user"
)

// HasRole reports whether roles grants any of required.
func HasRole(roles []string, required ...string) bool {
	for _, has := range roles {
		if has == RoleAdmin {
			return true
		}
		for _, want := range required {
			if has == want {
				return true
			}
		}
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// ScopeFacility resolves the facility a caller may read. Super and warehouse
// admins may pick any facility with requested, and an empty result means every
// facility. Everyone else is pinned to their own facility and refused when
// their identity carries none.
func ScopeFacility(id Identity, requested string) (string, error) {
	if HasRole(id.Roles, RoleSuperAdmin, RoleWarehouseAdmin) {
		if requested != "" {
			return requested, nil
		}
		return id.Facility, nil
	}
	if strings.TrimSpace(id.Facility) == "" {
		return "", echo.NewHTTPError(http.StatusForbidden, "no facility assigned")
	}
	return id.Facility, nil
}
