// Package views renders the HTML pages. Header, Footer and TaskHistoryCard
// are shared templates in components.html.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/abefas/EmberTracker/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// TaskHistoryPage is the data behind /task-history.
type TaskHistoryPage struct {
	Items  []models.CompletedTaskView
	Failed bool
}

// SignInPage is the data behind /auth/signin.
type SignInPage struct {
	Email string
	Error string
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Must is New for package-level setup.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) TaskHistory(w http.ResponseWriter, status int, page TaskHistoryPage) error {
	return r.render(w, status, "task_history", page)
}

func (r *Renderer) SignIn(w http.ResponseWriter, status int, page SignInPage) error {
	return r.render(w, status, "signin", page)
}

// render executes into a buffer first; on error nothing partial is written.
func (r *Renderer) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
