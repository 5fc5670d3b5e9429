package server

import (
	"github.com/jrsteele09/go-platform-console/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare(s.RequireSession())...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Role landing pages
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.HTMLMiddleWare(s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("GET "+RouteClientOnboarding, ChainMiddleware(s.OnboardingHandler(), s.HTMLMiddleWare(s.RequireRole(users.RoleClient))...))
	s.RegisterRouteHandler("GET "+RoutePlatformDashboard, ChainMiddleware(s.PlatformDashboardHandler(), s.HTMLMiddleWare(s.RequireRole(users.RoleClient))...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPISelection, ChainMiddleware(s.SelectionAPIHandler(), s.APIMiddleware(s.RequireAPISession())...))
	s.RegisterRouteHandler("POST "+RouteAPISelectPlatform, ChainMiddleware(s.SelectPlatformAPIHandler(), s.APIMiddleware(s.RequireAPISession())...))
	s.RegisterRouteHandler("POST "+RouteAPISelectAccount, ChainMiddleware(s.SelectAccountAPIHandler(), s.APIMiddleware(s.RequireAPISession())...))
	s.RegisterRouteHandler("POST "+RouteAPIRefresh, ChainMiddleware(s.RefreshAPIHandler(), s.APIMiddleware(s.RequireAPISession())...))
	s.RegisterRouteHandler("POST "+RouteAPIDismiss, ChainMiddleware(s.DismissAPIHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStaticConsoleStyle, ChainMiddleware(s.serveAsset("console.css"), s.StaticMiddleware()...))
}
