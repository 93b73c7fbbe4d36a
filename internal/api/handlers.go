package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/catalog"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/readme"
)

// Handler holds API route handlers.
type Handler struct {
	cat     catalog.Catalog
	baseURL string
}

// NewHandler creates a new Handler.
func NewHandler(cat catalog.Catalog, baseURL string) *Handler {
	return &Handler{cat: cat, baseURL: baseURL}
}

// ListPackages handles GET /api/packages?category=.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		category = c
	}

	items, err := h.cat.List(category)
	if err != nil {
		slog.Error("list packages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PackageListResponse{Packages: items, Total: len(items)})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*catalog.Package, bool) {
	category, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return nil, false
	}
	name := chi.URLParam(r, "name")
	if !models.ValidName(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid package name"))
		return nil, false
	}

	p, err := h.cat.Get(models.Ref{Category: category, Name: name})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get package failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return nil, false
	}
	return p, true
}

// GetPackage handles GET /api/packages/{category}/{name}.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// InstallInstructions handles GET /api/packages/{category}/{name}/install.
func (h *Handler) InstallInstructions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InstallResponse{
		Package:      p.Ref().String(),
		Instructions: readme.Instructions(p.Category, p.Name, p.DownloadURL, h.baseURL, p.Requires),
	})
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.cat.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
