// --- middleware/auth.go ---
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/abefas/EmberTracker/models"
)

// SessionCookie carries the signed session token.
const SessionCookie = "ember_session"

// ContextKey is a custom type to avoid context key collisions.
type ContextKey string

// SessionKey is the key we'll use to store the resolved session in the request context.
const SessionKey ContextKey = "session"

// SessionResolver turns a token into a session. (nil, nil) means anonymous.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
}

// SessionFromContext returns the signed-in session, or nil for anonymous
// requests.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(SessionKey).(*models.Session)
	return sess
}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// Session resolves the session cookie and adds the session to the request
// context. It never rejects a request: failures are logged and the request
// continues as anonymous, leaving the decision to the handler.
func Session(resolver SessionResolver, logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if errors.Is(err, http.ErrNoCookie) || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := resolver.GetSession(r.Context(), cookie.Value)
			if err != nil {
				logger.Printf("rid=%s error fetching session: %v", RequestIDFromContext(r.Context()), err)
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
