package examples

import (
	"path/filepath"
	"testing"

	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/testutil"
)

func TestLoadComponentYAMLWrapsSectionConfigs(t *testing.T) {
	root := t.TempDir()
	raw := "- sectionType: hero\n  text:\n    title: One\n- sectionType: hero\n  text:\n    title: Two\n"
	testutil.WriteFile(t, root, "lib/layouts/components/sections/hero/hero.yml", raw)

	ex := Load("hero", root, "lib/layouts/components/examples", "lib/layouts/components", models.CategorySection)
	if ex.Raw == nil || *ex.Raw != raw {
		t.Fatalf("raw not preserved: %v", ex.Raw)
	}
	if len(ex.Structured) != 2 {
		t.Fatalf("got %d examples, want 2", len(ex.Structured))
	}
	if ex.Structured[1].Name != "Example 2" || ex.Structured[1].Description != descFromComponent {
		t.Errorf("unexpected example: %+v", ex.Structured[1])
	}
	cfg, ok := ex.Structured[0].Config.(map[string]any)
	if !ok || cfg["sectionType"] != "hero" {
		t.Errorf("config not carried: %#v", ex.Structured[0].Config)
	}
}

func TestLoadComponentYAMLPassThrough(t *testing.T) {
	root := t.TempDir()
	raw := "- name: Dark\n  description: Dark variant\n  config:\n    theme: dark\n"
	testutil.WriteFile(t, root, "lib/layouts/components/_partials/button/button.yml", raw)

	ex := Load("button", root, "examples", "lib/layouts/components", models.CategoryPartial)
	if len(ex.Structured) != 1 {
		t.Fatalf("got %d examples", len(ex.Structured))
	}
	got := ex.Structured[0]
	if got.Name != "Dark" || got.Description != "Dark variant" {
		t.Errorf("unexpected example: %+v", got)
	}
}

func TestLoadLegacyExamples(t *testing.T) {
	root := t.TempDir()
	raw := "- name: Legacy\n  config:\n    a: 1\n"
	testutil.WriteFile(t, root, "examples/hero.yaml", raw)

	ex := Load("hero", root, "examples", "lib/layouts/components", models.CategorySection)
	if ex.Raw == nil || *ex.Raw != raw {
		t.Fatal("expected legacy raw text")
	}
	if len(ex.Structured) != 1 || ex.Structured[0].Name != "Legacy" {
		t.Errorf("unexpected structured: %+v", ex.Structured)
	}
}

func TestLoadInvalidYAMLFallsThrough(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "lib/layouts/components/sections/hero/hero.yml", "a: [unclosed\n")
	testutil.WriteFile(t, root, "examples/hero.yaml", "- name: Legacy\n  config: {}\n")

	ex := Load("hero", root, "examples", "lib/layouts/components", models.CategorySection)
	if len(ex.Structured) != 1 || ex.Structured[0].Name != "Legacy" {
		t.Errorf("expected legacy tier, got %+v", ex.Structured)
	}
}

func TestLoadFromDocs(t *testing.T) {
	root := t.TempDir()
	doc := "---\ntitle: Hero\nsections:\n  - sectionType: banner\n  - sectionType: hero\n    text:\n      title: Doc\n---\n\nBody\n"
	testutil.WriteFile(t, root, filepath.Join("src", "references", "sections", "hero.md"), doc)

	ex := Load("hero", root, "examples", "lib/layouts/components", models.CategorySection)
	if ex.Raw != nil {
		t.Error("docs examples have no raw text")
	}
	if len(ex.Structured) != 1 {
		t.Fatalf("got %d examples", len(ex.Structured))
	}
	if ex.Structured[0].Name != "Example 2" || ex.Structured[0].Description != descFromDocs {
		t.Errorf("unexpected example: %+v", ex.Structured[0])
	}
}

func TestLoadDefault(t *testing.T) {
	root := t.TempDir()

	sec := Load("hero", root, "examples", "lib", models.CategorySection)
	if len(sec.Structured) != 1 || sec.Structured[0].Name != "Basic Example" {
		t.Fatalf("unexpected default: %+v", sec.Structured)
	}
	if sec.Structured[0].Description != "Minimal hero configuration" {
		t.Errorf("description = %q", sec.Structured[0].Description)
	}
	cfg := sec.Structured[0].Config.(map[string]any)
	if cfg["sectionType"] != "hero" {
		t.Errorf("sectionType = %v", cfg["sectionType"])
	}

	part := Load("button", root, "examples", "lib", models.CategoryPartial)
	if cfg := part.Structured[0].Config.(map[string]any); len(cfg) != 0 {
		t.Errorf("partial default config should be empty, got %v", cfg)
	}
}

func TestDump(t *testing.T) {
	out, err := Dump([]models.Example{{Name: "Basic Example", Config: map[string]any{"a": 1}}})
	if err != nil {
		t.Fatal(err)
	}
	want := "- name: Basic Example\n  config:\n    a: 1\n"
	if out != want {
		t.Errorf("Dump =\n%s\nwant\n%s", out, want)
	}
}
