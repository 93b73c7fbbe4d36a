// Package models defines the domain types for componentkit.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// validName restricts component names to characters that are safe to embed
// unquoted in generated shell code and URLs.
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidName reports whether name may be used as a component or dependency name.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// VersionPattern accepts semantic versions with optional pre-release and
// build suffixes.
var VersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

// ValidVersion reports whether v may be used as a project version.
func ValidVersion(v string) bool {
	return VersionPattern.MatchString(v)
}

// Category is the component tier. It selects the install target directory
// and the download URL prefix.
type Category string

const (
	CategorySection Category = "section"
	CategoryPartial Category = "partial"
)

// Dir returns the plural directory name used in download URLs and bundle layout.
func (c Category) Dir() string {
	switch c {
	case CategorySection:
		return "sections"
	case CategoryPartial:
		return "partials"
	}
	return ""
}

// Title returns the capitalised label used in generated documentation.
func (c Category) Title() string {
	switch c {
	case CategorySection:
		return "Section"
	case CategoryPartial:
		return "Partial"
	}
	return ""
}

// Valid reports whether c is one of the two known categories.
func (c Category) Valid() bool {
	return c == CategorySection || c == CategoryPartial
}

// Ref identifies a component in the two-category namespace.
// An empty Category marks a dependency name that matched no scanned component.
type Ref struct {
	Category Category
	Name     string
}

func (r Ref) String() string {
	if r.Category == "" {
		return "?/" + r.Name
	}
	return r.Category.Dir() + "/" + r.Name
}

// Module is one file found under a component's modules/ directory.
type Module struct {
	Path    string // slash-separated, relative to modules/
	Content string
}

// Files holds the text content of a component's distributable files.
type Files struct {
	Template string
	Styles   string
	Scripts  string
	Modules  []Module
	Readme   string
}

// HasStyles reports whether the component ships a stylesheet.
func (f Files) HasStyles() bool { return f.Styles != "" }

// HasScripts reports whether the component ships a script.
func (f Files) HasScripts() bool { return f.Scripts != "" }

// HasModules reports whether the component ships any modules.
func (f Files) HasModules() bool { return len(f.Modules) > 0 }

// Example is one usage configuration rendered into documentation.
type Example struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Config      any    `yaml:"config"`
}

// Examples carries configuration examples for a component. Raw is the verbatim
// source text when examples came from a file, nil otherwise.
type Examples struct {
	Raw        *string
	Structured []Example
}

// Component is the in-memory record assembled by the scanner for one
// component directory. It is immutable once built.
type Component struct {
	Name        string
	Category    Category
	Path        string
	Version     string
	ContentHash string
	Manifest    *Manifest
	Files       Files
	Examples    Examples
	Requires    []string
}

// Ref returns the graph key of the component.
func (c *Component) Ref() Ref {
	return Ref{Category: c.Category, Name: c.Name}
}

// DisplayName returns the name with its first letter upper-cased.
func (c *Component) DisplayName() string {
	return DisplayName(c.Name)
}

// DisplayName upper-cases the first letter of name.
func DisplayName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ComponentSet groups scanned components by category.
type ComponentSet struct {
	Sections []*Component
	Partials []*Component
}

// All returns partials followed by sections.
func (s ComponentSet) All() []*Component {
	out := make([]*Component, 0, len(s.Sections)+len(s.Partials))
	out = append(out, s.Partials...)
	out = append(out, s.Sections...)
	return out
}

// Lookup finds a component by category and name.
func (s ComponentSet) Lookup(ref Ref) (*Component, bool) {
	var list []*Component
	switch ref.Category {
	case CategorySection:
		list = s.Sections
	case CategoryPartial:
		list = s.Partials
	default:
		return nil, false
	}
	for _, c := range list {
		if c.Name == ref.Name {
			return c, true
		}
	}
	return nil, false
}

// Len returns the total number of components.
func (s ComponentSet) Len() int {
	return len(s.Sections) + len(s.Partials)
}

// ParseCategory converts a singular or plural category label.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "section", "sections":
		return CategorySection, nil
	case "partial", "partials", "_partials":
		return CategoryPartial, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
