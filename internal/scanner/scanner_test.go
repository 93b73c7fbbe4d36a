package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/checksum"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/testutil"
)

func scan(t *testing.T, root string) []*models.Component {
	t.Helper()
	list, err := Scan(context.Background(), Options{
		Root:        root,
		Category:    models.CategorySection,
		ProjectRoot: t.TempDir(),
		Version:     "1.2.3",
	})
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestScanMissingRoot(t *testing.T) {
	list := scan(t, filepath.Join(t.TempDir(), "nope"))
	if list == nil || len(list) != 0 {
		t.Fatalf("want empty non-nil list, got %v", list)
	}
}

func TestScanSkipsDirectoriesWithoutManifest(t *testing.T) {
	root := t.TempDir()
	testutil.WriteComponent(t, root, testutil.Fixture{Name: "hero"})
	testutil.WriteFile(t, root, "draft/draft.njk", "<p></p>")
	testutil.WriteFile(t, root, "stray.txt", "not a dir")

	list := scan(t, root)
	if len(list) != 1 || list[0].Name != "hero" {
		t.Fatalf("unexpected components: %v", list)
	}
}

func TestScanSkipsUnsafeNames(t *testing.T) {
	root := t.TempDir()
	testutil.WriteComponent(t, root, testutil.Fixture{Name: "bad name"})
	testutil.WriteComponent(t, root, testutil.Fixture{Name: "ok"})

	list := scan(t, root)
	if len(list) != 1 || list[0].Name != "ok" {
		t.Fatalf("unexpected components: %v", list)
	}
}

func TestScanReadsFiles(t *testing.T) {
	root := t.TempDir()
	testutil.WriteComponent(t, root, testutil.Fixture{
		Name:     "hero",
		Manifest: `{"name":"hero","description":"Big banner","requires":{"ctas":"*","text":"*"}}`,
		Template: "tpl",
		Styles:   "css",
		Scripts:  "js",
		Extra: map[string]string{
			"modules/b.js":       "b",
			"modules/a/inner.js": "inner",
			"modules/notes.txt":  "ignored",
			"README.md":          "# Custom",
		},
	})

	list := scan(t, root)
	if len(list) != 1 {
		t.Fatalf("got %d components", len(list))
	}
	c := list[0]
	if c.Version != "1.2.3" || c.Category != models.CategorySection {
		t.Errorf("unexpected record: %+v", c)
	}
	if c.Files.Template != "tpl" || c.Files.Styles != "css" || c.Files.Scripts != "js" {
		t.Errorf("unexpected files: %+v", c.Files)
	}
	if c.Files.Readme != "# Custom" {
		t.Errorf("readme = %q", c.Files.Readme)
	}
	if len(c.Files.Modules) != 2 || c.Files.Modules[0].Path != "a/inner.js" || c.Files.Modules[1].Path != "b.js" {
		t.Errorf("unexpected modules: %+v", c.Files.Modules)
	}
	if len(c.Requires) != 2 || c.Requires[0] != "ctas" || c.Requires[1] != "text" {
		t.Errorf("requires = %v", c.Requires)
	}
	if c.ContentHash != checksum.ContentHash(c.Files) {
		t.Error("content hash not computed from files")
	}
	if c.Manifest.Description() != "Big banner" {
		t.Errorf("description = %q", c.Manifest.Description())
	}
	if len(c.Examples.Structured) != 1 || c.Examples.Structured[0].Name != "Basic Example" {
		t.Errorf("expected default example, got %+v", c.Examples.Structured)
	}
}

func TestScanLexicalOrder(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		testutil.WriteComponent(t, root, testutil.Fixture{Name: n})
	}
	list := scan(t, root)
	if len(list) != 3 || list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Fatalf("unexpected order: %v", list)
	}
}

func TestScanInvalidManifest(t *testing.T) {
	root := t.TempDir()
	testutil.WriteComponent(t, root, testutil.Fixture{Name: "hero", Manifest: "{nope"})
	_, err := Scan(context.Background(), Options{Root: root, Category: models.CategorySection})
	if !errors.Is(err, apperr.ErrInvalidComponent) {
		t.Fatalf("want ErrInvalidComponent, got %v", err)
	}
}

func TestScanMissingTemplate(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "hero/manifest.json", `{"name":"hero"}`)
	_, err := Scan(context.Background(), Options{Root: root, Category: models.CategorySection})
	if !errors.Is(err, apperr.ErrInvalidComponent) {
		t.Fatalf("want ErrInvalidComponent, got %v", err)
	}
}

func TestScanAll(t *testing.T) {
	lib := t.TempDir()
	testutil.WriteComponent(t, filepath.Join(lib, "sections"), testutil.Fixture{Name: "hero"})
	testutil.WriteComponent(t, filepath.Join(lib, "_partials"), testutil.Fixture{Name: "button"})

	set, err := ScanAll(context.Background(), lib, Options{Version: "0.1.0"})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Sections) != 1 || len(set.Partials) != 1 {
		t.Fatalf("unexpected set: %+v", set)
	}
	if set.Partials[0].Category != models.CategoryPartial {
		t.Error("partial category not set")
	}
}

func TestContentHashIgnoresManifestExamplesAndReadme(t *testing.T) {
	root := t.TempDir()
	testutil.WriteComponent(t, root, testutil.Fixture{
		Name:     "hero",
		Manifest: `{"name": "hero", "description": "before"}`,
		Styles:   ".hero {}",
		Extra: map[string]string{
			"hero.yml":  "examples:\n  - name: a\n",
			"README.md": "# Hero\n",
		},
	})
	before := scan(t, root)[0].ContentHash

	testutil.WriteFile(t, root, "hero/manifest.json", `{"name": "hero", "description": "after", "requires": ["text"]}`)
	testutil.WriteFile(t, root, "hero/hero.yml", "examples:\n  - name: b\n")
	testutil.WriteFile(t, root, "hero/README.md", "# Hero, rewritten\n")
	if after := scan(t, root)[0].ContentHash; after != before {
		t.Errorf("hash changed from %s to %s after editing non-distributed files", before, after)
	}

	testutil.WriteFile(t, root, "hero/hero.css", ".hero { color: red }")
	if after := scan(t, root)[0].ContentHash; after == before {
		t.Error("hash unchanged after editing the stylesheet")
	}
}
