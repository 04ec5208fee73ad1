package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie that scopes a visitor's Answer Store.
const SessionCookie = "regform_session"

const sessionMaxAge = 90 * 24 * time.Hour

type sessionKey struct{}

// Sessions assigns every visitor a session id, issuing a new cookie when the
// request carries none or a malformed one.
func Sessions(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
		})
	}
}

// SessionID returns the id Sessions attached to ctx.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
