// Package navigation decides where an operator should land. Everything here
// is pure: no I/O and no state, the result is recomputed on every call.
package navigation

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
)

// Landing paths
const (
	PathLogin             = "/login"
	PathAdminDashboard    = "/admin/dashboard"
	PathClientOnboarding  = "/client/onboarding"
	PathPlatformDashboard = "/client/platforms/{code}/dashboard"
)

// ResolveLanding returns the path the session's user should land on.
// A client whose selected platform is anything but connected, including a
// platform whose status is not known, goes to onboarding. A user without a
// known role is sent to the login page.
func ResolveLanding(s session.Snapshot, v selection.View) string {
	if s.User == nil || !s.User.Role.Valid() {
		return PathLogin
	}
	if s.User.Role == users.RoleAdmin {
		return PathAdminDashboard
	}
	if v.PlatformID == "" || v.Status != api.StatusConnected {
		return PathClientOnboarding
	}
	code := v.PlatformID
	if p, ok := v.SelectedPlatform(); ok && p.Code != "" {
		code = p.Code
	}
	return PlatformDashboard(code)
}

// PlatformDashboard is the landing path of one platform
func PlatformDashboard(code string) string {
	return strings.Replace(PathPlatformDashboard, "{code}", url.PathEscape(code), 1)
}

// FallbackFor is the landing path of a role when no selection is known
func FallbackFor(role users.RoleType) string {
	switch role {
	case users.RoleAdmin:
		return PathAdminDashboard
	case users.RoleClient:
		return PathClientOnboarding
	default:
		return PathLogin
	}
}
