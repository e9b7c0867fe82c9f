package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"megabytes": func(n int64) string {
		return formatMegabytes(n)
	},
}

var pages = map[string]*template.Template{
	"home":    parsePage("home.html"),
	"file":    parsePage("file.html"),
	"brd":     parsePage("brd.html"),
	"tickets": parsePage("tickets.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html", "templates/ticket_manager.html", "templates/"+name))
}

// render executes page into a buffer first so a template error never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("Failed to write page", "page", page, "error", err)
	}
}

// respondError answers a request that has no page of its own, such as the
// PDF proxy, with the plain error message.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := utils.StatusOf(err)
	message := utils.MessageOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		message = "Internal server error"
	}

	h.logger.Warn("Request error", "status", status, "error", err)
	http.Error(w, message, status)
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
