package installer

import (
	"fmt"
	"log/slog"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/depgraph"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/shell"
)

// Generator builds install scripts for components of one scanned library.
type Generator struct {
	graph    *depgraph.Graph
	baseURL  string
	renderer Renderer
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithDownloadBaseURL sets the default dependency download location baked
// into install.sh. DOWNLOAD_BASE_URL in the environment still overrides it.
func WithDownloadBaseURL(url string) Option {
	return func(g *Generator) {
		if url != "" {
			g.baseURL = url
		}
	}
}

// WithRenderer replaces the bash renderer.
func WithRenderer(r Renderer) Option {
	return func(g *Generator) {
		g.renderer = r
	}
}

// WithLogger sets the logger used for dependency warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// NewGenerator returns a Generator resolving dependencies through graph.
func NewGenerator(graph *depgraph.Graph, opts ...Option) *Generator {
	g := &Generator{
		graph:    graph,
		baseURL:  DefaultDownloadBaseURL,
		renderer: BashRenderer{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.graph == nil {
		g.graph = depgraph.New()
	}
	return g
}

// Graph returns the dependency graph the generator resolves against.
func (g *Generator) Graph() *depgraph.Graph {
	return g.graph
}

// InstallScript returns install.sh for c.
func (g *Generator) InstallScript(c *models.Component) (string, error) {
	if !models.ValidName(c.Name) {
		return "", fmt.Errorf("installer: name %q: %w", c.Name, apperr.ErrInvalidComponent)
	}
	if !models.ValidVersion(c.Version) {
		return "", fmt.Errorf("installer: %s: version %q: %w", c.Ref(), c.Version, apperr.ErrInvalidComponent)
	}
	plan := InstallPlan{
		Name:            c.Name,
		Version:         c.Version,
		ContentHash:     c.ContentHash,
		Category:        c.Category,
		Dependencies:    g.dependencies(c),
		HasStyles:       c.Files.HasStyles(),
		HasScripts:      c.Files.HasScripts(),
		HasModules:      c.Files.HasModules(),
		DownloadBaseURL: g.baseURL,
	}
	script := g.renderer.RenderInstall(plan)
	if err := shell.Validate(c.Name+"/install.sh", script); err != nil {
		return "", fmt.Errorf("installer: %s: %w", c.Ref(), err)
	}
	return script, nil
}

// dependencies returns the names to install before c, deepest first. A
// component outside the graph falls back to its declared list.
func (g *Generator) dependencies(c *models.Component) []string {
	var names []string
	if g.graph.Has(c.Ref()) {
		for _, ref := range g.graph.Closure(c.Ref()) {
			names = append(names, ref.Name)
		}
	} else {
		names = c.Requires
	}

	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] || name == c.Name {
			continue
		}
		seen[name] = true
		if !models.ValidName(name) {
			g.logger.Warn("installer: ignoring dependency with unsafe name",
				slog.String("component", c.Name),
				slog.String("dependency", name))
			continue
		}
		out = append(out, name)
	}
	return out
}

// BundleScript returns install-all.sh for set.
func (g *Generator) BundleScript(set models.ComponentSet) (string, error) {
	order, cycle := g.graph.InstallOrder()
	if cycle != nil {
		g.logger.Warn("installer: dependency cycle, falling back to category and name order",
			slog.String("error", cycle.Error()))
	}

	var plan BundlePlan
	for _, ref := range order {
		if _, ok := set.Lookup(ref); !ok {
			continue
		}
		step := BundleStep{Ref: ref}
		for _, d := range g.graph.Dependents(ref) {
			if _, ok := set.Lookup(d); ok {
				step.Dependents = append(step.Dependents, d)
			}
		}
		if ref.Category == models.CategoryPartial {
			plan.Partials = append(plan.Partials, step)
		} else {
			plan.Sections = append(plan.Sections, step)
		}
	}

	script := g.renderer.RenderBundle(plan)
	if err := shell.Validate("install-all.sh", script); err != nil {
		return "", fmt.Errorf("installer: bundle: %w", err)
	}
	return script, nil
}

// GenerateInstallScript renders install.sh for c using only its declared requirements.
func GenerateInstallScript(c *models.Component) (string, error) {
	return NewGenerator(nil).InstallScript(c)
}

// GenerateBundleInstallScript renders install-all.sh for set.
func GenerateBundleInstallScript(set models.ComponentSet) (string, error) {
	return NewGenerator(depgraph.Build(set)).BundleScript(set)
}
