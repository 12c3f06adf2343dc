package main

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

func (a *App) NewMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	if r.Method == http.MethodPost {
		form := NewMessageForm(r)
		if msgs := ValidateForm(form); len(msgs) > 0 {
			a.render(w, r, http.StatusOK, "message_new.html", map[string]any{
				"Form": form, "Errors": msgs,
			})
			return
		}

		if _, err := CreateMessage(a.db, user, form.Text); err != nil {
			a.serverError(w, err)
			return
		}
		a.metrics.MessagesSent.WithLabelValues(r.URL.Path).Inc()
		http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
		return
	}

	a.render(w, r, http.StatusOK, "message_new.html", map[string]any{"Form": &MessageForm{}})
}

func (a *App) ShowMessageHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := GetMessage(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	liked := false
	if current := CurrentUser(r); current != nil {
		liked, err = current.HasLiked(a.db, msg)
		if err != nil {
			a.serverError(w, err)
			return
		}
	}

	a.render(w, r, http.StatusOK, "message_show.html", map[string]any{
		"Message": msg, "Liked": liked,
	})
}

func (a *App) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	msg, err := GetMessage(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	if err := DeleteMessage(a.db, msg); err != nil {
		a.serverError(w, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
}

// LikeHandler toggles the current user's like on a message.
func (a *App) LikeHandler(w http.ResponseWriter, r *http.Request) {
	user := a.requireUser(w, r)
	if user == nil {
		return
	}

	msg, err := GetMessage(a.db, pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, err)
		return
	}

	if err := user.ToggleLike(a.db, msg); err != nil {
		a.serverError(w, err)
		return
	}
	a.metrics.LikeToggles.WithLabelValues(r.URL.Path).Inc()
	http.Redirect(w, r, fmt.Sprintf("/messages/%d", msg.ID), http.StatusFound)
}

// HomeHandler shows the feed for logged-in users and the landing page for
// anonymous visitors.
func (a *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		a.render(w, r, http.StatusOK, "home_anon.html", nil)
		return
	}

	messages, err := HomeFeed(a.db, user)
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.render(w, r, http.StatusOK, "home.html", map[string]any{"Messages": messages})
}
