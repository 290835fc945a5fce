package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// withSession makes sure every request carries a session cookie,
// minting a fresh id for first-time visitors, and exposes the id on the
// request context.
func (a *api) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string

		cookie, err := r.Cookie(a.cfg.Session.CookieName)
		if err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     a.cfg.Session.CookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(a.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

// currentUserID resolves the signed-in user for the request's session,
// nil for anonymous visitors.
func (a *api) currentUserID(r *http.Request) (*int64, error) {
	return a.sessions.UserID(r.Context(), sessionID(r))
}
