// Package examples resolves configuration examples for a component from the
// first source that exists: a co-located YAML file, the legacy examples
// directory, the component's documentation page, or a synthesized default.
package examples

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/parser"
)

const (
	descFromComponent = "Configuration from component"
	descFromDocs      = "Configuration from documentation"
)

// DefaultDocsPath is the documentation root searched for example frontmatter,
// relative to the project root.
const DefaultDocsPath = "src/references"

// Loader locates example sources relative to a project root.
type Loader struct {
	ProjectRoot  string
	ExamplesPath string // legacy flat directory, relative to ProjectRoot
	DocsPath     string // documentation root, relative to ProjectRoot
	Logger       *slog.Logger
}

// NewLoader returns a Loader with the conventional documentation location.
func NewLoader(projectRoot, examplesPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		ProjectRoot:  projectRoot,
		ExamplesPath: examplesPath,
		DocsPath:     filepath.FromSlash(DefaultDocsPath),
		Logger:       logger,
	}
}

// Load returns the examples for the named component. It never fails: when
// no source exists a single default example is synthesized.
func (l *Loader) Load(name, componentDir string, category models.Category) models.Examples {
	if ex, ok := l.fromYAML(filepath.Join(componentDir, name+".yml"), true); ok {
		return ex
	}
	if ex, ok := l.fromYAML(filepath.Join(l.ProjectRoot, l.ExamplesPath, name+".yaml"), false); ok {
		return ex
	}
	docPath := filepath.Join(l.ProjectRoot, l.DocsPath, category.Dir(), name+".md")
	if data, err := os.ReadFile(docPath); err == nil {
		return models.Examples{Structured: FromDocs(data, name)}
	}
	return models.Examples{Structured: Default(name, category)}
}

// Load resolves examples for a component laid out under
// <projectRoot>/<componentsPath>/<sections|_partials>/<name>.
func Load(name, projectRoot, examplesPath, componentsPath string, category models.Category) models.Examples {
	dir := filepath.Join(projectRoot, componentsPath, SourceDir(category), name)
	return NewLoader(projectRoot, examplesPath, nil).Load(name, dir, category)
}

// SourceDir returns the library directory that holds components of category.
func SourceDir(category models.Category) string {
	if category == models.CategoryPartial {
		return "_partials"
	}
	return "sections"
}

// fromYAML reads an examples file. A missing or unparseable file reports ok=false
// so the caller moves on to the next source.
func (l *Loader) fromYAML(path string, wrapSections bool) (models.Examples, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.Logger.Warn("examples: read failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return models.Examples{}, false
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		l.Logger.Warn("examples: invalid YAML", slog.String("path", path), slog.String("error", err.Error()))
		return models.Examples{}, false
	}
	raw := string(data)
	return models.Examples{Raw: &raw, Structured: normalize(doc, wrapSections)}, true
}

// normalize turns a decoded YAML document into example entries. A list of
// section configurations (first entry carries sectionType) is wrapped as
// "Example N" records when wrapSections is set; lists of {name, description,
// config} entries pass through. Anything that is not a list yields nil.
func normalize(doc any, wrapSections bool) []models.Example {
	list, ok := doc.([]any)
	if !ok {
		return nil
	}
	if wrapSections && len(list) > 0 && hasSectionType(list[0]) {
		out := make([]models.Example, len(list))
		for i, cfg := range list {
			out[i] = models.Example{
				Name:        fmt.Sprintf("Example %d", i+1),
				Description: descFromComponent,
				Config:      cfg,
			}
		}
		return out
	}
	out := make([]models.Example, 0, len(list))
	for i, item := range list {
		m, isMap := item.(map[string]any)
		if !isMap {
			out = append(out, models.Example{Name: fmt.Sprintf("Example %d", i+1), Config: item})
			continue
		}
		cfg, hasConfig := m["config"]
		if !hasConfig {
			out = append(out, models.Example{Name: fmt.Sprintf("Example %d", i+1), Config: m})
			continue
		}
		ex := models.Example{Config: cfg}
		ex.Name, _ = m["name"].(string)
		ex.Description, _ = m["description"].(string)
		if ex.Name == "" {
			ex.Name = fmt.Sprintf("Example %d", i+1)
		}
		out = append(out, ex)
	}
	return out
}

func hasSectionType(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m["sectionType"]
	return ok
}

// FromDocs extracts the frontmatter sections whose sectionType matches name.
// Example numbers follow each entry's position in the page.
func FromDocs(doc []byte, name string) []models.Example {
	res, err := parser.Parse(doc)
	if err != nil || res.Frontmatter == nil {
		return []models.Example{}
	}
	out := []models.Example{}
	for i, section := range res.Sections() {
		if section == nil || section["sectionType"] != name {
			continue
		}
		out = append(out, models.Example{
			Name:        fmt.Sprintf("Example %d", i+1),
			Description: descFromDocs,
			Config:      section,
		})
	}
	return out
}

// Default synthesizes the minimal example used when nothing else is found.
func Default(name string, category models.Category) []models.Example {
	cfg := map[string]any{}
	if category == models.CategorySection {
		cfg = map[string]any{
			"sectionType": name,
			"text": map[string]any{
				"title": "Example Title",
				"prose": "Example content",
			},
		}
	}
	return []models.Example{{
		Name:        "Basic Example",
		Description: fmt.Sprintf("Minimal %s configuration", name),
		Config:      cfg,
	}}
}

// Dump renders structured examples as YAML for archives that have no raw source.
func Dump(examples []models.Example) (string, error) {
	if len(examples) == 0 {
		return "", nil
	}
	out, err := marshalYAML(examples)
	if err != nil {
		return "", fmt.Errorf("examples: dump: %w", err)
	}
	return out, nil
}
