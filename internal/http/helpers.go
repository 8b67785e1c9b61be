package http

import (
	"context"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
)

// requireIdentity writes a 401 and returns false when the request carries no
// authenticated caller.
func requireIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
		return identity.Identity{}, false
	}
	return id, true
}

// writeServiceError maps a dashboard error onto the response taxonomy.
// Validation and authorization failures are the caller's; anything else is
// logged and reported as a generic failure.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op, publicMsg string, err error) {
	if ve, ok := core.AsValidation(err); ok {
		ValidationErrorResponse(ve).Write(w)
		return
	}
	if errors.Is(err, core.ErrUnauthorized) {
		UnauthorizedError().Write(w)
		return
	}

	errType := applog.ErrorTypeDatabase
	if errors.Is(err, context.DeadlineExceeded) {
		errType = applog.ErrorTypeTimeout
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).ErrorContext(r.Context(), "Dashboard request failed",
		applog.NewFields().WithOperation(op).WithError(err, errType).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").ToSlice()...)
	InternalServerError(publicMsg).Write(w)
}

// storeContext bounds the store work of one request.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.storeTimeout)
}
