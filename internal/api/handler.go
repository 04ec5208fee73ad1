// Package api serves the questionnaire, the careers page and their JSON
// endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/careers"
	"github.com/regform/regform/internal/flow"
	"github.com/regform/regform/internal/schema"
	"github.com/regform/regform/internal/site"
	"github.com/regform/regform/internal/storage"
	"github.com/regform/regform/internal/submission"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Store is the persistence the handlers need. Implemented by
// *storage.Store.
type Store interface {
	answers.Backend
	ListAttempts(sessionID string, limit int) ([]storage.Attempt, error)
}

type Deps struct {
	Store    Store
	Schemas  schema.Loader
	SchemaFS fs.FS // served under /data/
	Flow     *flow.Controller
	Gate     *submission.Gate
	Careers  *careers.Service // optional; nil hides /careers/
	Media    *site.Decorator

	// AdminToken guards /admin/*; empty disables those routes.
	AdminToken    string
	SecureCookies bool
	// VideoID is the introduction video linked from the instructions page.
	VideoID string
	Logger  *slog.Logger
}

// NewHandler returns the site's top-level router.
func NewHandler(deps Deps) http.Handler {
	if deps.Media == nil {
		deps.Media = site.NewDecorator("")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	if deps.SchemaFS != nil {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServerFS(deps.SchemaFS)))
	}

	r.Group(func(r chi.Router) {
		r.Use(Sessions(deps.SecureCookies))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, schema.Instructions.Route(), http.StatusFound)
		})
		r.Post("/patient-registry/answers", h.handleAutosave)
		r.Get("/patient-registry/{page}/", h.handlePage)
		r.Post("/patient-registry/{page}/continue", h.handleContinue)
		r.Post("/patient-registry/submission-approval/submit", h.handleSubmit)
	})

	if deps.Careers != nil {
		r.Get("/careers/", h.handleCareers)
	}

	if deps.AdminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(BearerAuth(deps.AdminToken))
			r.Get("/sessions/{id}/attempts", h.handleListAttempts)
			if deps.Careers != nil {
				r.Post("/careers/refresh", h.handleCareersRefresh)
			}
		})
	}

	return r
}

type handler struct {
	deps Deps
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := parseIntParam(r, "limit", 20, 100)

	attempts, err := h.deps.Store.ListAttempts(id, limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list attempts: %v", err)
		return
	}
	type attemptJSON struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		Outcome   string `json:"outcome"`
		Error     string `json:"error,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]attemptJSON, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptJSON{
			ID:        a.ID,
			Kind:      a.Kind,
			Outcome:   a.Outcome,
			Error:     a.Error,
			CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
