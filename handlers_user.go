package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

func pathID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id)
}

// SignupHandler renders the signup form and creates new accounts. A taken
// username or email re-presents the form with a flash rather than erroring.
func (a *App) SignupHandler(w http.ResponseWriter, r *http.Request) {
	form := &SignupForm{}

	if r.Method == http.MethodPost {
		form = NewSignupForm(r)
		if msgs := ValidateForm(form); len(msgs) > 0 {
			a.render(w, r, http.StatusOK, "signup.html", map[string]any{
				"Form": form, "Errors": msgs,
			})
			return
		}

		user, err := SignupUser(a.db, form.Username, form.Email, form.Password, form.ImageURL)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				a.addFlash(w, r, "Username already taken")
				a.render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": form})
				return
			}
			a.serverError(w, err)
			return
		}

		if err := a.login(w, r, user); err != nil {
			a.serverError(w, err)
			return
		}
		a.metrics.Signups.WithLabelValues(r.URL.Path).Inc()
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	a.render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": form})
}

func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	form := &LoginForm{}

	if r.Method == http.MethodPost {
		form = NewLoginForm(r)
		if msgs := ValidateForm(form); len(msgs) == 0 {
			if user := Authenticate(a.db, form.Username, form.Password); user != nil {
				if err := a.login(w, r, user); err != nil {
					a.serverError(w, err)
					return
				}
				a.addFlash(w, r, fmt.Sprintf("Hello, %s!", user.Username))
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			a.addFlash(w, r, "Invalid credentials.")
		}
	}

	a.render(w, r, http.StatusOK, "login.html", map[string]any{"Form": form})
}

// LogoutHandler clears the session. The CSRF middleware already rejected
// token failures with 401 before this runs.
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.logout(w, r); err != nil {
		a.serverError(w, err)
		return
	}
	a.addFlash(w, r, "User successfully logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ListUsersHandler lists users, optionally filtered by the q substring.
func (a *App) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	users, err := ListUsers(a.db, q)
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.render(w, r, http.StatusOK, "users_index.html", map[string]any{
		"Users": users, "Query": q,
	})
}

func (a *App) ShowUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := GetUser(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	messages, err := UserMessages(a.db, user)
	if err != nil {
		a.serverError(w, err)
		return
	}
	stats, err := user.Stats(a.db)
	if err != nil {
		a.serverError(w, err)
		return
	}

	following := false
	if current := CurrentUser(r); current != nil {
		following, err = current.IsFollowing(a.db, user)
		if err != nil {
			a.serverError(w, err)
			return
		}
	}

	a.render(w, r, http.StatusOK, "users_show.html", map[string]any{
		"User":        user,
		"Messages":    messages,
		"Stats":       stats,
		"IsFollowing": following,
	})
}

func (a *App) ShowFollowingHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireUser(w, r) == nil {
		return
	}

	user, err := GetUser(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	following, err := user.Following(a.db)
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.render(w, r, http.StatusOK, "users_following.html", map[string]any{
		"User": user, "Following": following,
	})
}

func (a *App) ShowFollowersHandler(w http.ResponseWriter, r *http.Request) {
	if a.requireUser(w, r) == nil {
		return
	}

	user, err := GetUser(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	followers, err := user.Followers(a.db)
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.render(w, r, http.StatusOK, "users_followers.html", map[string]any{
		"User": user, "Followers": followers,
	})
}

func (a *App) FollowHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	target, err := GetUser(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	if err := user.Follow(a.db, target); err != nil {
		a.serverError(w, err)
		return
	}
	a.metrics.FollowRequests.WithLabelValues(r.URL.Path).Inc()
	http.Redirect(w, r, fmt.Sprintf("/users/%d/following", user.ID), http.StatusFound)
}

// StopFollowingHandler removes the follow edge. Unfollowing someone the user
// never followed is a silent no-op.
func (a *App) StopFollowingHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	target, err := GetUser(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	if err := user.Unfollow(a.db, target); err != nil {
		a.serverError(w, err)
		return
	}
	a.metrics.UnfollowRequests.WithLabelValues(r.URL.Path).Inc()
	http.Redirect(w, r, fmt.Sprintf("/users/%d/following", user.ID), http.StatusFound)
}

// EditProfileHandler updates the current user's profile. The submitted
// password is re-checked against the stored hash before any field changes;
// a wrong password discards the submission entirely.
func (a *App) EditProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	if r.Method == http.MethodPost {
		form := NewProfileEditForm(r)
		if msgs := ValidateForm(form); len(msgs) > 0 {
			a.render(w, r, http.StatusOK, "users_edit.html", map[string]any{
				"User": user, "Errors": msgs,
			})
			return
		}

		if !CheckPasswordHash(form.Password, user.Password) {
			a.addFlash(w, r, "Access unauthorized.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		// Blank fields keep their current values; bio and location are
		// replaced outright so they can be cleared.
		if form.Username != "" {
			user.Username = form.Username
		}
		if form.Email != "" {
			user.Email = form.Email
		}
		if form.ImageURL != "" {
			user.ImageURL = form.ImageURL
		}
		if form.HeaderImageURL != "" {
			user.HeaderImageURL = form.HeaderImageURL
		}
		user.Bio = form.Bio
		user.Location = form.Location

		if err := a.db.Save(user).Error; err != nil {
			a.serverError(w, err)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
		return
	}

	a.render(w, r, http.StatusOK, "users_edit.html", map[string]any{"User": user})
}

// DeleteUserHandler deletes the account: log out first, then remove the user
// and everything cascading from them.
func (a *App) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	if err := a.logout(w, r); err != nil {
		a.serverError(w, err)
		return
	}
	if err := DeleteUser(a.db, user); err != nil {
		a.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/signup", http.StatusFound)
}
