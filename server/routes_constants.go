package server

import "github.com/jrsteele09/go-platform-console/navigation"

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Session Routes
	RouteLogin    = navigation.PathLogin
	RouteRegister = "/register"
	RouteLogout   = "/logout"

	// Role landing pages
	RouteAdminDashboard    = navigation.PathAdminDashboard
	RouteClientOnboarding  = navigation.PathClientOnboarding
	RoutePlatformDashboard = navigation.PathPlatformDashboard

	// API Routes
	RouteAPISession         = "/api/session"
	RouteAPISelection       = "/api/selection"
	RouteAPISelectPlatform  = "/api/selection/platform"
	RouteAPISelectAccount   = "/api/selection/account"
	RouteAPIRefresh         = "/api/selection/refresh"
	RouteAPIDismiss         = "/api/notification/dismiss"
	RouteStaticConsoleStyle = "/console.css"
)
