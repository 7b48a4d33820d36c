package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can set the viewer.
type contextKey string

const viewerIDKey contextKey = "viewerID"

// CookieName is the HttpOnly cookie the login handler sets.
const CookieName = "token"

// OptionalAuth identifies the viewer if a valid token is present and lets
// the request through either way.
//
// An invalid or expired token is treated exactly like no token: the viewer
// becomes unauthenticated, which is the least privileged role. It never
// produces an error response, so a stale cookie cannot lock anyone out of
// public pages.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := viewerFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithViewerID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid token with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := viewerFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithViewerID(r.Context(), id)))
		})
	}
}

// WithViewerID returns ctx carrying viewerID. Handlers' tests use it to
// skip token plumbing.
func WithViewerID(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerIDKey, viewerID)
}

// ViewerIDFromContext returns ("", false) for an unauthenticated request.
func ViewerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerIDKey).(string)
	return id, ok && id != ""
}

// viewerFromRequest prefers the Authorization header over the cookie.
func viewerFromRequest(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && tok != "" {
			return tokens.Validate(strings.TrimSpace(tok))
		}
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
