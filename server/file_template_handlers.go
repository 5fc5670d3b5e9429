package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/users"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

// Page templates, each rendered inside layout.html
const (
	pageLogin             = "login.html"
	pageRegister          = "register.html"
	pageLoading           = "loading.html"
	pageAdminDashboard    = "admin_dashboard.html"
	pageOnboarding        = "onboarding.html"
	pagePlatformDashboard = "platform_dashboard.html"
)

// pageData is the single template model of the console pages
type pageData struct {
	AppName      string
	User         *users.User
	View         selection.View
	Platform     api.Platform
	Notification *selection.Notification
	Error        string

	// Echoed form values
	Email     string
	FirstName string
	LastName  string
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageLogin, pageRegister, pageLoading, pageAdminDashboard, pageOnboarding, pagePlatformDashboard} {
		tmpl, err := template.New(name).Funcs(template.FuncMap{
			"platformDashboard": platformDashboardPath,
		}).ParseFS(TemplateFilesFS(), "layout.html", name)
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	data.AppName = s.appName
	if n, ok := s.notices.Last(); ok {
		data.Notification = &n
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Err(err).Str("page", page).Msg("failed to render page")
	}
}
