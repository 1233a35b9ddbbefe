package report

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

var sampleTmpl = template.Must(template.New("sample").Parse(`<!DOCTYPE html>
<html>
<head><title>Display Doctor</title></head>
<body>
  <h1>Display Doctor render check</h1>
  <p>Generated at {{.GeneratedAt}}</p>
</body>
</html>`))

// Handler exposes Gotenberg diagnostics: a health probe and a sample render
// for verifying the PDF pipeline without touching invoice data.
type Handler struct {
	client *Client
	logger *slog.Logger
}

func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers the diagnostics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Post("/sample", h.sample)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sampleTmpl.Execute(&buf, map[string]string{
		"GeneratedAt": time.Now().Format(time.RFC1123),
	}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), buf.String())
	if err != nil {
		h.logger.Error("render sample pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=sample.pdf")
	_, _ = w.Write(pdf)
}
