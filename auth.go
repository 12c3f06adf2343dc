package main

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "warbler_session"

	// currUserKey is the fixed session key carrying the logged-in user's id.
	currUserKey = "curr_user"
)

type contextKey string

const userContextKey contextKey = "user"

func newSessionStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 16, // 16 hours
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// login stores the user's id in the session.
func (a *App) login(w http.ResponseWriter, r *http.Request, user *User) error {
	session, _ := a.store.Get(r, sessionName)
	session.Values[currUserKey] = user.ID
	return session.Save(r, w)
}

// logout drops the current-user key if present. Requests after this have no
// current actor.
func (a *App) logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, sessionName)
	delete(session.Values, currUserKey)
	return session.Save(r, w)
}

// withCurrentUser resolves the session-carried user id to a User record once
// per request and attaches it to the request context. A missing or stale id
// leaves the request anonymous.
func (a *App) withCurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := a.store.Get(r, sessionName)
		if id, ok := session.Values[currUserKey].(uint); ok {
			if user, err := GetUser(a.db, id); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the acting user for this request, or nil.
func CurrentUser(r *http.Request) *User {
	user, _ := r.Context().Value(userContextKey).(*User)
	return user
}

func (a *App) addFlash(w http.ResponseWriter, r *http.Request, msg string) {
	session, _ := a.store.Get(r, sessionName)
	session.AddFlash(msg)
	if err := session.Save(r, w); err != nil {
		a.log.WithError(err).Warn("failed to save flash")
	}
}

// popFlashes drains and returns the pending flash messages.
func (a *App) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	session, _ := a.store.Get(r, sessionName)
	raw := session.Flashes()
	if len(raw) > 0 {
		if err := session.Save(r, w); err != nil {
			a.log.WithError(err).Warn("failed to clear flashes")
		}
	}
	flashes := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	return flashes
}

// requireUser returns the current user, or redirects home with an
// unauthorized flash and returns nil. Callers must stop when nil.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) *User {
	user := CurrentUser(r)
	if user == nil {
		a.addFlash(w, r, "Access unauthorized.")
		http.Redirect(w, r, "/", http.StatusFound)
		return nil
	}
	return user
}
