package apifake

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Handler serves the backend contract over HTTP
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+api.PathCurrentUser, b.handleCurrentUser)
	mux.HandleFunc("POST "+api.PathLogin, b.handleLogin)
	mux.HandleFunc("POST "+api.PathRegister, b.handleRegister)
	mux.HandleFunc("GET "+api.PathPlatforms, b.handlePlatforms)
	mux.HandleFunc("GET "+api.PathAccounts, b.handleAccounts)
	return mux
}

func (b *Backend) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := b.FetchCurrentUser(r.Context(), bearerToken(r))
	respond(w, u, err)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials users.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		respond(w, nil, errors.Wrap(api.ErrValidation, "malformed request body"))
		return
	}
	result, err := b.Login(r.Context(), credentials)
	respond(w, result, err)
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var registration users.Registration
	if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
		respond(w, nil, errors.Wrap(api.ErrValidation, "malformed request body"))
		return
	}
	result, err := b.Register(r.Context(), registration)
	if err == nil {
		w.Header().Set("Location", api.PathCurrentUser)
	}
	respond(w, result, err)
}

func (b *Backend) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := b.ListPlatforms(r.Context(), bearerToken(r))
	privateCache(w)
	respond(w, platforms, err)
}

func (b *Backend) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := b.ListAccounts(r.Context(), bearerToken(r), r.PathValue("id"))
	privateCache(w)
	respond(w, accounts, err)
}

// privateCache lets a client-side cache reuse a list briefly, per token
func privateCache(w http.ResponseWriter) {
	w.Header().Set("Vary", "Authorization")
	w.Header().Set("Cache-Control", "private, max-age=5")
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func respond(w http.ResponseWriter, body any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status, resp := api.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Err(err).Msg("fake backend failure")
		}
		w.Header().Del("Cache-Control")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
