package main

import (
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	db        *gorm.DB
	store     *sessions.CookieStore
	secret    []byte
	log       *logrus.Logger
	metrics   *Metrics
	templates templateSet

	// secureCookies marks cookies Secure; left off outside production so the
	// app works behind plain HTTP in development.
	secureCookies bool
}

func NewApp(db *gorm.DB, secret []byte, log *logrus.Logger) *App {
	return &App{
		db:        db,
		store:     newSessionStore(secret),
		secret:    secret,
		log:       log,
		metrics:   InitMetrics(),
		templates: parseTemplates(),
	}
}

func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/signup", a.SignupHandler).Methods("GET", "POST")
	r.HandleFunc("/login", a.LoginHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", a.LogoutHandler).Methods("POST")

	r.HandleFunc("/users", a.ListUsersHandler).Methods("GET")
	r.HandleFunc("/users/profile", a.EditProfileHandler).Methods("GET", "POST")
	r.HandleFunc("/users/delete", a.DeleteUserHandler).Methods("POST")
	r.HandleFunc("/users/follow/{id:[0-9]+}", a.FollowHandler).Methods("POST")
	r.HandleFunc("/users/stop-following/{id:[0-9]+}", a.StopFollowingHandler).Methods("POST")
	r.HandleFunc("/users/{id:[0-9]+}", a.ShowUserHandler).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/following", a.ShowFollowingHandler).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/followers", a.ShowFollowersHandler).Methods("GET")

	r.HandleFunc("/messages/new", a.NewMessageHandler).Methods("GET", "POST")
	r.HandleFunc("/messages/{id:[0-9]+}", a.ShowMessageHandler).Methods("GET")
	r.HandleFunc("/messages/{id:[0-9]+}/delete", a.DeleteMessageHandler).Methods("POST")
	r.HandleFunc("/messages/{id:[0-9]+}/like", a.LikeHandler).Methods("POST")

	r.HandleFunc("/", a.HomeHandler).Methods("GET")

	r.Handle("/metrics", a.metrics.Handler()).Methods("GET")
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	return r
}

// Handler assembles the middleware chain around the router. CSRF protection
// can be switched off so tests can post forms without fetching tokens first.
func (a *App) Handler(enableCSRF bool) http.Handler {
	var h http.Handler = a.withCurrentUser(a.routes())
	if enableCSRF {
		h = csrf.Protect(a.secret,
			csrf.Secure(a.secureCookies),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(a.csrfFailure)),
		)(h)
	}
	h = a.noStore(h)
	h = a.instrument(h)
	return h
}

// csrfFailure handles a missing or invalid anti-forgery token. Logout
// rejects outright; every other mutating route redirects home with a flash.
func (a *App) csrfFailure(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/logout" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	a.addFlash(w, r, "Access unauthorized.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// noStore adds the non-caching directive on every response.
func (a *App) noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and feeds the request counters.
func (a *App) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		switch {
		case rec.status < 400:
			a.metrics.SuccessfulRequests.WithLabelValues(r.URL.Path).Inc()
		case rec.status < 500:
			a.metrics.BadRequests.WithLabelValues(r.URL.Path).Inc()
		}

		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

func (a *App) serverError(w http.ResponseWriter, err error) {
	a.log.WithError(err).Error("internal server error")
	http.Error(w, "An error occurred.", http.StatusInternalServerError)
}
