package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"consultdesk/internal/adapters/bookingapi"
	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/domain/flash"
	"consultdesk/internal/domain/format"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// userMessage converts an action error into the single banner text shown for it.
// Upstream, validation and transport errors carry user-facing text already;
// an undecodable success body is logged and reported with the generic message.
func userMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
		slog.Warn("upstream_decode_failed", "error", err)
		return bookingapi.DefaultErrorMessage
	}
	return err.Error()
}

// currentSession returns the request's session. Outside the Sessions
// middleware it returns a throwaway session so handlers never nil-check.
func currentSession(r *http.Request) *middleware.Session {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		return sess
	}
	return &middleware.Session{}
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess := currentSession(r)

	funcMap := template.FuncMap{
		"csrfToken": func() string { return csrf.Token(r) },
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
		"isAdmin":   func() bool { return sess.IsAdmin() },
		"isExpert":  func() bool { return sess.ExpertAuthed },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"formatDateTime": func(t time.Time) string { return format.DateTime(t, settings.Location) },
		"message": func(set flash.Set, target string) *flash.Message {
			if m, ok := set.Get(target); ok {
				return &m
			}
			return nil
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// confirmPage describes the confirmation step of a destructive action.
type confirmPage struct {
	Title   string
	Prompt  string
	Action  string
	Back    string
	Filter  string
	Message *flash.Message
}

// renderConfirm shows the confirmation form that re-posts to action with confirmed=yes.
func renderConfirm(w http.ResponseWriter, r *http.Request, page confirmPage) {
	renderTemplate(w, r, "confirm.html", page)
}

// isConfirmed reports whether the confirmation step was passed.
func isConfirmed(r *http.Request) bool {
	return r.PostFormValue("confirmed") == "yes"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}
