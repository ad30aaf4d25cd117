package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/s950329/qmd-bridge/internal/auth"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

type requestIDKey struct{}

// withRequestID tags every request with an ID, honoring one supplied by the
// caller so log lines can be correlated across systems.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// authenticated resolves the bearer credential and hands the tenant to the
// handler. Any resolution failure is a 401 with no further detail.
func (s *Server) authenticated(handler func(http.ResponseWriter, *http.Request, tenant.Tenant)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.auth.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			s.writeBridgeError(w, r, err)
			return
		}
		handler(w, r.WithContext(auth.WithTenant(r.Context(), t)), t)
	})
}
