// Package handlers serves the quote pages and their JSON counterparts.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/services"
)

var errNoSession = errors.New("unauthorized")

// workspace returns the signed-in user's workspace. The user id is the
// storage slot.
func workspace(ws *services.Workspaces, r *http.Request) (*services.Workspace, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, errNoSession
	}
	return ws.Get(r.Context(), uid)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrMissingSelection),
		errors.Is(err, services.ErrNoValidItems),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrQuoteNotFound), errors.Is(err, services.ErrPartyNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateNumber):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	if errors.Is(err, errNoSession) {
		return "unauthorized"
	}
	return services.Code(err)
}

// writeJSONError answers a JSON client with the error code and its
// translated message.
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	code := errorCode(err)
	httpx.JSONErrorMessage(w, status, code, i18n.T(code), nil)
}
