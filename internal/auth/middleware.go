package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/medilink/medilink/internal/platform/httpx"
)

type contextKey struct{}

var actorKey contextKey

// ContextWithActor attaches a verified actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor attached to the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// Middleware resolves bearer tokens into actors.
type Middleware struct {
	tokens *TokenStore
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(tokens *TokenStore) Middleware {
	return Middleware{tokens: tokens}
}

// Require rejects requests without a valid token for the given scope.
func (m Middleware) Require(scope Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := m.tokens.Resolve(r.Context(), bearerToken(r))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "valid bearer token required")
				return
			}
			if actor.Scope != scope {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "wrong portal for this endpoint")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireAny accepts a valid token from either portal.
func (m Middleware) RequireAny() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := m.tokens.Resolve(r.Context(), bearerToken(r))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "valid bearer token required")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	// Websocket clients cannot set headers from the browser API.
	return r.URL.Query().Get("token")
}
