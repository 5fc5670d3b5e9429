package api

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"github.com/pkg/errors"
)

// Errors surfaced by every Client implementation
var (
	ErrUnauthorized       = apperrors.ErrUnauthorized
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	ErrValidation         = apperrors.ErrValidation
	ErrConflict           = apperrors.ErrConflict
	ErrNotFound           = apperrors.ErrNotFound
	ErrNetworkFailure     = apperrors.ErrNetworkFailure
)

// Wire error codes
const (
	CodeUnauthorized       = "unauthorized"
	CodeInvalidCredentials = "invalid_credentials"
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_error"
)

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var codeErrors = map[string]error{
	CodeUnauthorized:       ErrUnauthorized,
	CodeInvalidCredentials: ErrInvalidCredentials,
	CodeValidation:         ErrValidation,
	CodeConflict:           ErrConflict,
	CodeNotFound:           ErrNotFound,
}

// ErrorFromResponse maps an HTTP error status and body to the taxonomy.
// The body code wins; the status is the fallback.
func ErrorFromResponse(status int, body ErrorResponse) error {
	sentinel, ok := codeErrors[body.Error]
	if !ok {
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			sentinel = ErrUnauthorized
		case status == http.StatusConflict:
			sentinel = ErrConflict
		case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
			sentinel = ErrValidation
		case status == http.StatusNotFound:
			sentinel = ErrNotFound
		default:
			sentinel = ErrNetworkFailure
		}
	}
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.Wrap(sentinel, msg)
}

// StatusFor is the inverse mapping used by servers speaking this contract
func StatusFor(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Message: err.Error()}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		resp.Error = CodeInvalidCredentials
		return http.StatusUnauthorized, resp
	case errors.Is(err, ErrUnauthorized):
		resp.Error = CodeUnauthorized
		return http.StatusUnauthorized, resp
	case errors.Is(err, ErrValidation):
		resp.Error = CodeValidation
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, ErrConflict):
		resp.Error = CodeConflict
		return http.StatusConflict, resp
	case errors.Is(err, ErrNotFound):
		resp.Error = CodeNotFound
		return http.StatusNotFound, resp
	}
	resp.Error = CodeInternal
	return http.StatusInternalServerError, resp
}
