package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Cart-Session"
	SessionCookie = "cart_session"

	sessionCookieMaxAge = 30 * 24 * time.Hour
)

type sessionKey struct{}

// SessionMiddleware resolves the cart session from the X-Cart-Session header
// or the cart_session cookie, issuing a new cookie when neither is present.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = c.Value
			}
		}
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, sessionID)

		ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionKey{}).(string)
	return sessionID
}
