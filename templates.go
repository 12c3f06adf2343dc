package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

type templateSet map[string]*template.Template

var pageTemplates = []string{
	"home.html",
	"home_anon.html",
	"signup.html",
	"login.html",
	"users_index.html",
	"users_show.html",
	"users_following.html",
	"users_followers.html",
	"users_edit.html",
	"message_new.html",
	"message_show.html",
}

func parseTemplates() templateSet {
	set := make(templateSet, len(pageTemplates))
	for _, page := range pageTemplates {
		set[page] = template.Must(template.ParseFS(
			templateFS, "templates/layout.html", "templates/"+page))
	}
	return set
}

type templateData struct {
	CurrentUser *User
	Flashes     []string
	CSRFField   template.HTML
	Data        any
}

// render executes a page template into a buffer first, so a template failure
// yields a clean 500 instead of a half-written body.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := a.templates[page]
	if !ok {
		a.serverError(w, errUnknownTemplate(page))
		return
	}

	td := &templateData{
		CurrentUser: CurrentUser(r),
		Flashes:     a.popFlashes(w, r),
		CSRFField:   csrf.TemplateField(r),
		Data:        data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", td); err != nil {
		a.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

type errUnknownTemplate string

func (e errUnknownTemplate) Error() string {
	return "unknown template: " + string(e)
}
