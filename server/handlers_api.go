package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/selection"
	"github.com/jrsteele09/go-platform-console/session"
)

type selectRequest struct {
	ID string `json:"id"`
}

type selectionResponse struct {
	selection.View
	Notification *selection.Notification `json:"notification,omitempty"`
}

// SessionAPIHandler returns the session without its token (GET /api/session)
func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.sessions.Snapshot()
		writeJSON(w, http.StatusOK, struct {
			session.Snapshot
			Ready bool `json:"ready"`
		}{Snapshot: snap, Ready: snap.Ready()})
	}
}

// SelectionAPIHandler returns the selection (GET /api/selection)
func (s *Server) SelectionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.selectionResponse())
	}
}

// SelectPlatformAPIHandler handles POST /api/selection/platform
func (s *Server) SelectPlatformAPIHandler() http.HandlerFunc {
	return s.selectHandler(s.selection.SelectPlatform)
}

// SelectAccountAPIHandler handles POST /api/selection/account
func (s *Server) SelectAccountAPIHandler() http.HandlerFunc {
	return s.selectHandler(s.selection.SelectAccount)
}

// RefreshAPIHandler reloads platforms, or the accounts of the selected
// platform with ?scope=accounts (POST /api/selection/refresh)
func (s *Server) RefreshAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh := s.selection.RefreshPlatforms
		if r.URL.Query().Get("scope") == "accounts" {
			refresh = s.selection.RefreshAccounts
		}
		err := refresh(r.Context())
		if isForm(r) {
			http.Redirect(w, r, backTo(r), http.StatusSeeOther)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.selectionResponse())
	}
}

// DismissAPIHandler clears the pending notification (POST /api/notification/dismiss)
func (s *Server) DismissAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.notices.Dismiss()
		if isForm(r) {
			http.Redirect(w, r, backTo(r), http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// selectHandler accepts a JSON body or a form post from the console pages
func (s *Server) selectHandler(selectFn func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if isForm(r) {
			req.ID = r.PostFormValue("id")
		} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, api.CodeValidation, "malformed request body")
			return
		}

		err := selectFn(req.ID)
		if isForm(r) {
			if err != nil {
				s.logger.Info().Err(err).Str("id", req.ID).Msg("selection rejected")
			}
			http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.selectionResponse())
	}
}

func (s *Server) selectionResponse() selectionResponse {
	resp := selectionResponse{View: s.selection.View()}
	if n, ok := s.notices.Last(); ok {
		resp.Notification = &n
	}
	return resp
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// backTo is the page a form post returns to
func backTo(r *http.Request) string {
	if ref := r.Referer(); ref != "" && strings.HasPrefix(ref, "http://"+r.Host+"/") {
		return strings.TrimPrefix(ref, "http://"+r.Host)
	}
	return RouteIndex
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	_, body := api.StatusFor(err)
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSONError(w, status, body.Error, userMessage(err))
}
