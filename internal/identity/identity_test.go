package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
		authed bool
	}{
		{"default header", DefaultHeader, "user-1", "user-1", true},
		{"trimmed", DefaultHeader, "  user-2 ", "user-2", true},
		{"missing", "", "", "", false},
		{"too long", DefaultHeader, strings.Repeat("a", maxOwnerIDLength+1), "", false},
		{"custom header ignored by default", "X-Other", "user-3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Identity
			var ok bool
			h := Middleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = FromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if ok != tt.authed || got.OwnerID != tt.want {
				t.Fatalf("got (%+v, %v), want (%q, %v)", got, ok, tt.want, tt.authed)
			}
		})
	}
}

func TestFromContextRejectsEmptyIdentity(t *testing.T) {
	ctx := NewContext(context.Background(), Identity{})
	if _, ok := FromContext(ctx); ok {
		t.Fatal("empty identity must not count as authenticated")
	}
}
