// Package identity resolves the subject asserted by the external identity
// provider into a local user record. Authentication itself happens upstream;
// requests arriving without the trusted header are treated as anonymous and
// rejected by the RBAC layer.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glintcare/glintcare/internal/shared"
)

// Resolver looks up a local user by external subject.
type Resolver interface {
	ResolveSubject(ctx context.Context, subject string) (*shared.Actor, error)
}

// Middleware attaches the resolved actor to the request context.
type Middleware struct {
	Header   string
	Resolver Resolver
	Logger   *slog.Logger
}

// Handler wraps next with actor resolution.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := strings.TrimSpace(r.Header.Get(m.Header))
		if subject == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := m.Resolver.ResolveSubject(r.Context(), subject)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("identity resolve", slog.String("subject", subject), slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := shared.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
