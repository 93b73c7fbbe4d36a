// Package testutil provides shared test helpers for building component
// libraries on disk.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates root/rel with content, making parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Fixture describes a component directory to lay out with WriteComponent.
type Fixture struct {
	Name     string
	Manifest string            // manifest.json body; empty means {"name": Name}
	Template string            // <name>.njk body; empty means a placeholder
	Styles   string            // optional <name>.css
	Scripts  string            // optional <name>.js
	Extra    map[string]string // additional files relative to the component dir
}

// WriteComponent lays out a component under dir/<Name> and returns its path.
func WriteComponent(t *testing.T, dir string, f Fixture) string {
	t.Helper()
	compDir := filepath.Join(dir, f.Name)
	manifest := f.Manifest
	if manifest == "" {
		manifest = `{"name": "` + f.Name + `"}`
	}
	template := f.Template
	if template == "" {
		template = "<div class=\"" + f.Name + "\"></div>\n"
	}
	WriteFile(t, compDir, "manifest.json", manifest)
	WriteFile(t, compDir, f.Name+".njk", template)
	if f.Styles != "" {
		WriteFile(t, compDir, f.Name+".css", f.Styles)
	}
	if f.Scripts != "" {
		WriteFile(t, compDir, f.Name+".js", f.Scripts)
	}
	for rel, content := range f.Extra {
		WriteFile(t, compDir, rel, content)
	}
	return compDir
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
