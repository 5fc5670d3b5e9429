package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-platform-console/navigation"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the session snapshot the guard admitted
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the snapshot stored by RequireSession
func SessionFromContext(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(ContextKeySession).(session.Snapshot)
	return snap, ok
}

// RequireSession gates protected pages. While the session is undetermined it
// serves the loading page with 503 and Retry-After; an anonymous visitor is
// redirected to the login page.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snap := s.sessions.Snapshot()
			if !snap.Ready() {
				s.renderLoading(w)
				return
			}
			if !snap.IsAuthenticated() {
				http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, snap)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole behaves like RequireSession and additionally sends a user
// whose role is not in roles to their own landing page. When that landing
// cannot admit the user either, the login page is served in place so a
// different account can be used.
func (s *Server) RequireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	requireSession := s.RequireSession()
	return func(next http.HandlerFunc) http.HandlerFunc {
		return requireSession(func(w http.ResponseWriter, r *http.Request) {
			snap, _ := SessionFromContext(r.Context())
			if snap.User.HasRole(roles...) {
				next(w, r)
				return
			}
			target := navigation.ResolveLanding(snap, s.selection.View())
			if target == RouteLogin || target == r.URL.Path {
				s.renderNoAccess(w, snap)
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// renderNoAccess answers a signed-in user the console has no page for
func (s *Server) renderNoAccess(w http.ResponseWriter, snap session.Snapshot) {
	s.logger.Warn().Str("user_id", snap.User.ID).Str("role", string(snap.User.Role)).Msg("no console page for role")
	s.render(w, http.StatusForbidden, pageLogin, pageData{
		Error: "This account has no access to the console, log in with another account",
		Email: snap.User.Email,
	})
}

// RequireAPISession is RequireSession for JSON routes
func (s *Server) RequireAPISession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snap := s.sessions.Snapshot()
			if !snap.Ready() {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "session is loading")
				return
			}
			if !snap.IsAuthenticated() {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "login required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, snap)
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) renderLoading(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	s.render(w, http.StatusServiceUnavailable, pageLoading, pageData{})
}
