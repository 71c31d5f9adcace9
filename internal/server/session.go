package server

import (
	"context"
	"net/http"
	"unicode"

	"github.com/google/uuid"
)

const (
	// SessionHeader lets API clients carry a session without cookies. It wins over the cookie.
	SessionHeader = "X-Session-ID"
	// SessionCookie holds the browser session ID.
	SessionCookie = "recipe_share_session"

	maxSessionIDLen = 128
)

type sessionKey struct{}

// withSession resolves the caller's session ID, minting one when absent, and echoes it back.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if !validSessionID(id) {
			id = ""
			if c, err := r.Cookie(SessionCookie); err == nil && validSessionID(c.Value) {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// sessionID returns the session resolved by withSession.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || !(c == '-' || c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return false
		}
	}
	return true
}
