package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-platform-console/api"
	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/jrsteele09/go-platform-console/navigation"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
)

// IndexHandler sends the operator to their landing page (GET /). A client
// waits on the loading page until the platform list has landed so the
// decision is not made on an empty selection.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, _ := SessionFromContext(r.Context())
		view := s.selection.View()
		if snap.Role() == users.RoleClient && view.LoadingPlatforms {
			s.renderLoading(w)
			return
		}
		http.Redirect(w, r, navigation.ResolveLanding(snap, view), http.StatusSeeOther)
	}
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if snap := s.sessions.Snapshot(); snap.IsAuthenticated() {
			if snap.User.Role.Valid() {
				http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
				return
			}
			s.renderNoAccess(w, snap)
			return
		}
		s.render(w, http.StatusOK, pageLogin, pageData{Email: r.URL.Query().Get("email")})
	}
}

// LoginSubmissionHandler handles the login form (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.render(w, http.StatusBadRequest, pageLogin, pageData{Error: "Invalid form submission"})
			return
		}
		credentials := users.Credentials{
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}

		if _, err := s.sessions.Login(r.Context(), credentials); err != nil {
			s.logger.Info().Err(err).Str("email", credentials.Email).Msg("console login rejected")
			s.render(w, statusFor(err), pageLogin, pageData{Error: userMessage(err), Email: credentials.Email})
			return
		}
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}

// RegisterPageHandler displays the sign-up page (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.Snapshot().IsAuthenticated() {
			http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
			return
		}
		s.render(w, http.StatusOK, pageRegister, pageData{})
	}
}

// RegisterSubmissionHandler handles the sign-up form (POST /register)
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.render(w, http.StatusBadRequest, pageRegister, pageData{Error: "Invalid form submission"})
			return
		}
		registration := users.Registration{
			Email:     strings.TrimSpace(r.PostFormValue("email")),
			Password:  r.PostFormValue("password"),
			FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
			LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		}

		if _, err := s.sessions.Register(r.Context(), registration); err != nil {
			s.logger.Info().Err(err).Str("email", registration.Email).Msg("console registration rejected")
			s.render(w, statusFor(err), pageRegister, pageData{
				Error:     userMessage(err),
				Email:     registration.Email,
				FirstName: registration.FirstName,
				LastName:  registration.LastName,
			})
			return
		}
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}

// LogoutHandler ends the session (POST /logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Logout()
		s.notices.Dismiss()
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, _ := SessionFromContext(r.Context())
		s.render(w, http.StatusOK, pageAdminDashboard, pageData{User: snap.User})
	}
}

func (s *Server) OnboardingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, _ := SessionFromContext(r.Context())
		s.render(w, http.StatusOK, pageOnboarding, pageData{User: snap.User, View: s.selection.View()})
	}
}

// PlatformDashboardHandler shows one connected platform. Opening the page of
// another connected platform selects it.
func (s *Server) PlatformDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, _ := SessionFromContext(r.Context())
		view := s.selection.View()
		code := r.PathValue("code")

		var platform api.Platform
		found := false
		for _, p := range view.Platforms {
			if p.Code == code || p.ID == code {
				platform, found = p, true
				break
			}
		}
		if !found {
			if view.LoadingPlatforms {
				s.renderLoading(w)
				return
			}
			http.Redirect(w, r, navigation.ResolveLanding(snap, view), http.StatusSeeOther)
			return
		}
		if !platform.IsConnected() {
			http.Redirect(w, r, RouteClientOnboarding, http.StatusSeeOther)
			return
		}
		if platform.ID != view.PlatformID {
			if err := s.selection.SelectPlatform(platform.ID); err != nil {
				s.logger.Warn().Err(err).Str("platform_id", platform.ID).Msg("could not select platform")
			}
			view = s.selection.View()
		}

		s.render(w, http.StatusOK, pagePlatformDashboard, pageData{User: snap.User, View: view, Platform: platform})
	}
}

func platformDashboardPath(p api.Platform) string {
	if p.Code != "" {
		return navigation.PlatformDashboard(p.Code)
	}
	return navigation.PlatformDashboard(p.ID)
}

// statusFor maps a core error to the console's HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, selection.ErrPlatformsLoading):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNetworkFailure):
		return http.StatusBadGateway
	}
	status, _ := api.StatusFor(err)
	return status
}

// userMessage turns a core error into text for the operator
func userMessage(err error) string {
	var invalid *users.ValidationError
	switch {
	case errors.As(err, &invalid):
		if invalid.Reason == "" {
			return "Please check your details and try again"
		}
		return strings.ToUpper(invalid.Reason[:1]) + invalid.Reason[1:]
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, apperrors.ErrValidation):
		return "Please check your details and try again"
	case errors.Is(err, apperrors.ErrConflict):
		return "An account with this email already exists"
	case errors.Is(err, apperrors.ErrBusy):
		return "Another sign-in is in progress, please wait"
	case errors.Is(err, apperrors.ErrNetworkFailure):
		return "The service is unreachable, please try again"
	case errors.Is(err, selection.ErrPlatformsLoading):
		return "Platforms are still loading, please try again"
	case errors.Is(err, apperrors.ErrNotFound):
		return "That item is no longer available"
	default:
		return "Something went wrong"
	}
}
