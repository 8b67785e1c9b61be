// Package identity normalizes the caller identity supplied by the upstream
// identity provider into one value carried on the request context.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// DefaultHeader is the header the fronting proxy sets after authentication.
const DefaultHeader = "X-User-ID"

const maxOwnerIDLength = 128

// Identity is the authenticated caller. The zero value is anonymous.
type Identity struct {
	OwnerID string
}

func (i Identity) Authenticated() bool { return i.OwnerID != "" }

type contextKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by Middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || !id.Authenticated() {
		return Identity{}, false
	}
	return id, true
}

// Middleware reads the owner id from header once per request. Requests
// without a usable value pass through anonymous; handlers decide whether
// that is acceptable.
func Middleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(header))
			if owner != "" && len(owner) <= maxOwnerIDLength && !strings.ContainsAny(owner, "\r\n\t") {
				r = r.WithContext(NewContext(r.Context(), Identity{OwnerID: owner}))
			}
			next.ServeHTTP(w, r)
		})
	}
}
