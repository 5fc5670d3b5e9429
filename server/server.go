package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-platform-console/internal/config"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionService is what the console needs from session.Manager
type SessionService interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, credentials users.Credentials) (session.Snapshot, error)
	Register(ctx context.Context, registration users.Registration) (session.Snapshot, error)
	Logout() session.Snapshot
}

// SelectionService is what the console needs from selection.Context
type SelectionService interface {
	View() selection.View
	SelectPlatform(id string) error
	SelectAccount(id string) error
	RefreshPlatforms(ctx context.Context) error
	RefreshAccounts(ctx context.Context) error
}

// Notifications holds the last transient failure until the operator dismisses it
type Notifications interface {
	Last() (selection.Notification, bool)
	Dismiss()
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	appName   string
	mux       *http.ServeMux
	routes    []string
	sessions  SessionService
	selection SelectionService
	notices   Notifications
	logger    zerolog.Logger
	pages     map[string]*template.Template
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNotifications(n Notifications) Option {
	return func(s *Server) {
		s.notices = n
	}
}

func New(cfg config.EnvConfig, sessions SessionService, sel SelectionService, options ...Option) (*Server, error) {
	s := &Server{
		env:       cfg.GetEnv(),
		appName:   cfg.GetAppName(),
		mux:       http.NewServeMux(),
		sessions:  sessions,
		selection: sel,
		notices:   &selection.Inbox{},
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.pages = pages

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1], 0)
		} else {
			s.logRoute("", parts[0], 0)
		}
	}
}

func (s *Server) logRoute(method, path string, status int) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	colour, ok := methodColors[method]
	if !ok {
		colour = Gray
	}
	line := fmt.Sprintf("[%s%s%s] %s", colour, paddedMethod, ResetColor, path)
	if status > 0 {
		line += " " + statusColour(status) + fmt.Sprint(status) + ResetColor
	}
	s.logger.Debug().Msg(line)
}
