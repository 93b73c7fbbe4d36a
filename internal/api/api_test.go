package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/componentkit/internal/catalog"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/testutil"
)

// testEnv opens a temp catalog seeded with two packages and returns its router.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, e := range []catalog.Entry{
		{Package: catalog.Package{
			Category:    models.CategorySection,
			Name:        "hero",
			DisplayName: "Hero",
			ContentHash: "h",
			Description: "Large banner with call to action",
			DownloadURL: "/downloads/sections/hero.zip",
			Requires:    []string{"ctas"},
		}},
		{Package: catalog.Package{
			Category:    models.CategoryPartial,
			Name:        "ctas",
			DisplayName: "Ctas",
			ContentHash: "c",
			DownloadURL: "/downloads/partials/ctas.zip",
		}},
	} {
		if err := db.Upsert(e); err != nil {
			t.Fatal(err)
		}
	}
	return NewRouter(db, nil, "https://example.com")
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestListPackages(t *testing.T) {
	router := testEnv(t)

	w := get(t, router, "/packages")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp PackageListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Packages[0].Name != "ctas" {
		t.Errorf("resp = %+v", resp)
	}

	w = get(t, router, "/packages?category=sections")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Packages[0].Name != "hero" {
		t.Errorf("filtered resp = %+v", resp)
	}
}

func TestListPackagesBadCategory(t *testing.T) {
	if w := get(t, testEnv(t), "/packages?category=widgets"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetPackage(t *testing.T) {
	router := testEnv(t)

	w := get(t, router, "/packages/section/hero")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var p Package
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Name != "hero" || p.Category != models.CategorySection || len(p.Requires) != 1 {
		t.Errorf("package = %+v", p)
	}

	if w := get(t, router, "/packages/partials/hero"); w.Code != http.StatusNotFound {
		t.Errorf("wrong category status = %d, want 404", w.Code)
	}
	if w := get(t, router, "/packages/partials/$(id)"); w.Code != http.StatusBadRequest {
		t.Errorf("unsafe name status = %d, want 400", w.Code)
	}
}

func TestInstallInstructions(t *testing.T) {
	w := get(t, testEnv(t), "/packages/sections/hero/install")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp InstallResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Package != "sections/hero" || !strings.Contains(resp.Instructions, "https://example.com/downloads/sections/hero.zip") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch(t *testing.T) {
	router := testEnv(t)

	w := get(t, router, "/search?q=banner")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Name != "hero" {
		t.Errorf("results = %+v", resp.Results)
	}

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", w.Code)
	}
}

func TestDownloads(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "manifest.json", `{"version":"1.0.0"}`)

	h := Downloads("/downloads", dir)
	w := get(t, h, "/downloads/manifest.json")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"version":"1.0.0"`) {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("cache-control = %q", w.Header().Get("Cache-Control"))
	}
	if w := get(t, h, "/downloads/missing.zip"); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}
