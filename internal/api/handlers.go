package api

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/swipepad/internal/catalog"
	"github.com/roach88/swipepad/internal/domain"
)

// Handler serves one catalog.
type Handler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithRand sets the random source behind /api/projects/random.
func WithRand(r *rand.Rand) HandlerOption {
	return func(h *Handler) {
		h.rng = r
	}
}

// NewHandler creates a Handler for c.
func NewHandler(c *catalog.Catalog, opts ...HandlerOption) *Handler {
	h := &Handler{
		catalog: c,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type projectList struct {
	Category string           `json:"category,omitempty"`
	Count    int              `json:"count"`
	Projects []domain.Project `json:"projects"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"projects": h.catalog.Len(),
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{
		"categories": h.catalog.Categories(),
	})
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	projects := h.catalog.List(category)
	if projects == nil {
		projects = []domain.Project{}
	}
	respondWithJSON(w, http.StatusOK, projectList{
		Category: category,
		Count:    len(projects),
		Projects: projects,
	})
}

func (h *Handler) handleRandomProject(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	h.mu.Lock()
	p, ok := h.catalog.Random(category, h.rng)
	h.mu.Unlock()

	if !ok {
		respondWithError(w, http.StatusNotFound, string(domain.CodeNoProject), "no projects in category "+category)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Get(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, string(domain.CodeNoProject), "project "+id+" not found")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
