// Package readme renders the documentation and package metadata files that
// ship inside component archives.
package readme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/componentkit/internal/examples"
	"github.com/starford/componentkit/internal/models"
)

// SiteURL is the public documentation site linked from generated READMEs.
const SiteURL = "https://nunjucks-components.netlify.app/"

// Resolver maps a requires name to the component it refers to.
type Resolver func(name string) models.Ref

type options struct {
	resolve Resolver
}

// Option configures README generation.
type Option func(*options)

// WithResolver links dependencies to their resolved category. Without one
// every dependency is linked as a partial.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolve = r }
}

func consumerConfigJSON() string {
	def := models.DefaultConsumerConfig()
	return fmt.Sprintf("{\n  \"componentsBasePath\": %q,\n  \"sectionsDir\": %q,\n  \"partialsDir\": %q\n}\n",
		def.ComponentsBasePath, def.SectionsDir, def.PartialsDir)
}

func sourceDir(c models.Category) string {
	return examples.SourceDir(c)
}

// Generate renders README.md for c.
func Generate(c *models.Component, opts ...Option) string {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	kind := string(c.Category)
	fmt.Fprintf(&b, "# %s %s\n\n", c.DisplayName(), c.Category.Title())
	fmt.Fprintf(&b, "**Version:** %s\n", c.Version)
	fmt.Fprintf(&b, "**Content Hash:** %s\n\n", c.ContentHash)

	if desc := c.Manifest.Description(); desc != "" {
		b.WriteString(desc + "\n\n")
	}

	if len(c.Requires) > 0 {
		b.WriteString("## Dependencies\n\n")
		fmt.Fprintf(&b, "This %s requires the following components:\n\n", kind)
		for _, dep := range c.Requires {
			dir := models.CategoryPartial.Dir()
			if o.resolve != nil {
				if ref := o.resolve(dep); ref.Category == models.CategorySection {
					dir = ref.Category.Dir()
				}
			}
			fmt.Fprintf(&b, "- [%s](../%s/%s.zip)\n", dep, dir, dep)
		}
		b.WriteString("\n**Note:** Dependencies are not included in this package. ")
		b.WriteString("The install script downloads missing ones automatically.\n\n")
	}

	b.WriteString("## Features\n\n")
	if c.Files.HasStyles() {
		b.WriteString("- Includes custom styles\n")
	}
	if c.Files.HasScripts() {
		b.WriteString("- Includes interactive JavaScript\n")
	}
	if c.Files.HasModules() {
		b.WriteString("- Includes additional modules:\n")
		for _, m := range c.Files.Modules {
			fmt.Fprintf(&b, "  - %s\n", m.Path)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Installation\n\n")
	b.WriteString("### Automated Installation\n\n")
	b.WriteString("```bash\n./install.sh\n```\n\n")
	fmt.Fprintf(&b, "**Prerequisite:** Create a `%s` file in your project root:\n\n", models.ConsumerConfigFile)
	b.WriteString("```json\n" + consumerConfigJSON() + "```\n\n")
	b.WriteString("The install script will:\n")
	b.WriteString("- Read paths from your config file\n")
	b.WriteString("- Check for existing versions\n")
	b.WriteString("- Verify and auto-install dependencies\n")
	b.WriteString("- Copy files to the correct locations\n\n")

	target := fmt.Sprintf("your-project/%s/%s/%s/", models.DefaultConsumerConfig().ComponentsBasePath, sourceDir(c.Category), c.Name)
	b.WriteString("### Manual Installation\n\n")
	b.WriteString("Copy the component files to your project:\n\n")
	b.WriteString("```bash\n")
	fmt.Fprintf(&b, "cp %s.njk %s\n", c.Name, target)
	if c.Files.HasStyles() {
		fmt.Fprintf(&b, "cp %s.css %s\n", c.Name, target)
	}
	if c.Files.HasScripts() {
		fmt.Fprintf(&b, "cp %s.js %s\n", c.Name, target)
	}
	if c.Files.HasModules() {
		fmt.Fprintf(&b, "cp -r modules %s\n", target)
	}
	fmt.Fprintf(&b, "cp manifest.json %s\n", target)
	b.WriteString("```\n\n")

	if c.Category == models.CategorySection && len(c.Examples.Structured) > 0 {
		b.WriteString("## Usage\n\n")
		fmt.Fprintf(&b, "Add the %s section to your page frontmatter:\n\n", c.Name)
		for i, ex := range c.Examples.Structured {
			if i > 0 {
				b.WriteString("\n---\n\n")
			}
			fmt.Fprintf(&b, "### %s\n\n", ex.Name)
			if ex.Description != "" {
				b.WriteString(ex.Description + "\n\n")
			}
			b.WriteString("```yaml\nsections:\n")
			b.WriteString("  - " + snippet(ex.Config) + "\n")
			b.WriteString("```\n\n")
		}
	}

	b.WriteString("## More Information\n\n")
	b.WriteString("For complete documentation and live examples, visit:\n")
	docPath := "references/partials"
	if c.Category == models.CategorySection {
		docPath = "library"
	}
	fmt.Fprintf(&b, "%s%s/%s/\n\n", SiteURL, docPath, c.Name)
	return b.String()
}

// snippet renders cfg as YAML indented to sit under a "  - " list marker.
func snippet(cfg any) string {
	out, err := examples.MarshalYAML(cfg)
	if err != nil {
		return "{}"
	}
	return strings.Join(strings.Split(strings.TrimSpace(out), "\n"), "\n    ")
}

// PackageJSON renders package.json for c with a stable key order.
func PackageJSON(c *models.Component) ([]byte, error) {
	desc := c.Manifest.Description()
	if desc == "" {
		desc = fmt.Sprintf("Nunjucks %s %s", c.Name, c.Category)
	}
	files := []string{c.Name + ".njk", "manifest.json", "README.md", "install.sh"}
	if c.Files.HasStyles() {
		files = append(files, c.Name+".css")
	}
	if c.Files.HasScripts() {
		files = append(files, c.Name+".js")
	}
	if c.Files.HasModules() {
		files = append(files, "modules/")
	}

	pkg := packageJSON{
		Name:        "@nunjucks-components/" + c.Name,
		Version:     c.Version,
		Description: desc,
		Keywords:    []string{"nunjucks", "metalsmith", "eleventy", "component", string(c.Category), c.Name},
		Marker:      true,
		ContentHash: c.ContentHash,
		Main:        c.Name + ".njk",
		Files:       files,
	}
	if len(c.Requires) > 0 {
		peers := orderedmap.New[string, string]()
		for _, dep := range c.Requires {
			peers.Set("@nunjucks-components/"+dep, ">="+c.Version)
		}
		raw, err := objectJSON(peers)
		if err != nil {
			return nil, err
		}
		pkg.PeerDependencies = raw
	}
	return encodeIndented(pkg)
}

type packageJSON struct {
	Name             string          `json:"name"`
	Version          string          `json:"version"`
	Description      string          `json:"description"`
	Keywords         []string        `json:"keywords"`
	Marker           bool            `json:"x-nunjucks-component"`
	ContentHash      string          `json:"contentHash"`
	Main             string          `json:"main"`
	Files            []string        `json:"files"`
	PeerDependencies json.RawMessage `json:"peerDependencies,omitempty"`
}

// objectJSON encodes an ordered string map without HTML escaping, so that
// version constraints keep their literal ">=".
func objectJSON(m *orderedmap.OrderedMap[string, string]) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := encodeString(pair.Key)
		if err != nil {
			return nil, err
		}
		v, err := encodeString(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("readme: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("readme: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func names(list []*models.Component) string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name
	}
	return strings.Join(out, ", ")
}

// Bundle renders README.md for the aggregate archive.
func Bundle(version string, set models.ComponentSet) string {
	var b strings.Builder
	dir := models.BundleDir
	fmt.Fprintf(&b, "# Nunjucks Components Bundle v%s\n\n", version)
	b.WriteString("Complete collection of Nunjucks components for building modern websites with static site generators.\n\n")

	b.WriteString("## Contents\n\n")
	b.WriteString("This bundle includes:\n\n")
	fmt.Fprintf(&b, "- **%d Section Components:** %s\n", len(set.Sections), names(set.Sections))
	fmt.Fprintf(&b, "- **%d Partial Components:** %s\n\n", len(set.Partials), names(set.Partials))

	b.WriteString("## Prerequisites\n\n")
	fmt.Fprintf(&b, "Before installing components, create a `%s` file in your project root:\n\n", models.ConsumerConfigFile)
	b.WriteString("```json\n" + consumerConfigJSON() + "```\n\n")
	b.WriteString("Edit these values to match your project structure. This file is required for installation.\n\n")

	b.WriteString("## Installation\n\n")
	b.WriteString("### Installation Modes\n\n")
	b.WriteString("The bundle installer supports two modes:\n\n")
	b.WriteString("**1. Full Install (default)** - Installs all components:\n")
	b.WriteString("```bash\n# From your project root:\n")
	fmt.Fprintf(&b, "unzip %s.zip\n./%s/install-all.sh\n```\n\n", dir, dir)
	b.WriteString("If you already have components installed, the script will prompt you to choose between:\n")
	b.WriteString("- Install all components (adds new ones, updates existing)\n")
	b.WriteString("- Update existing components only (skips new components)\n\n")
	b.WriteString("**2. Update Mode** - Only updates components you already have:\n")
	fmt.Fprintf(&b, "```bash\n./%s/install-all.sh --update-only\n# or use the short form:\n./%s/install-all.sh -u\n```\n\n", dir, dir)
	b.WriteString("Components that are not installed are skipped unless an installed component depends on them.\n\n")

	b.WriteString("### Selective Installation\n\n")
	b.WriteString("To install individual components from the bundle:\n\n")
	b.WriteString("```bash\n# From your project root:\n")
	fmt.Fprintf(&b, "./%s/sections/hero/install.sh\n# or for partials:\n./%s/partials/text/install.sh\n```\n\n", dir, dir)

	b.WriteString("## Documentation\n\n")
	b.WriteString("For complete documentation and live examples, visit:\n")
	b.WriteString(SiteURL + "\n\n")
	b.WriteString("## License\n\nMIT License\n")
	return b.String()
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n with one decimal place at most, e.g. "1.5KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + sizeUnits[i]
}
