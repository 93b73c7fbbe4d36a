// Package api implements the componentkit catalog HTTP API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/componentkit/internal/catalog"
)

// NewRouter creates a chi router with the catalog routes. sseHandler, if
// non-nil, is mounted at GET /events. baseURL makes download links in install
// instructions absolute.
func NewRouter(cat catalog.Catalog, sseHandler http.Handler, baseURL string) chi.Router {
	h := NewHandler(cat, baseURL)

	r := chi.NewRouter()
	r.Get("/packages", h.ListPackages)
	r.Get("/packages/{category}/{name}", h.GetPackage)
	r.Get("/packages/{category}/{name}/install", h.InstallInstructions)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}

// Downloads serves the generated archives and manifest.json from dir. Mount
// it at prefix, e.g. "/downloads".
func Downloads(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	})
}
