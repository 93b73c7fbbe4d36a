// Package depgraph orders components by their declared requirements.
//
// Edges run from a dependency to its dependent: an edge from A to B means A
// must be installed before B.
package depgraph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/componentkit/internal/models"
)

type (
	// CycleError reports requirements that form a cycle.
	CycleError struct {
		// Cycle holds the nodes left unordered by the sort, in insertion order.
		Cycle []models.Ref
	}

	// Graph is a directed dependency graph keyed by component reference.
	Graph struct {
		// adjacency maps each node to its dependents.
		adjacency map[models.Ref][]models.Ref
		// requires maps each node to its dependencies in declaration order.
		requires map[models.Ref][]models.Ref
		// nodes tracks insertion order for deterministic output.
		nodes   []models.Ref
		nodeSet map[models.Ref]bool
		// known indexes scanned components by name for Resolve.
		known map[string][]models.Category
	}
)

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, r := range e.Cycle {
		parts[i] = r.String()
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[models.Ref][]models.Ref),
		requires:  make(map[models.Ref][]models.Ref),
		nodeSet:   make(map[models.Ref]bool),
		known:     make(map[string][]models.Category),
	}
}

// Build adds every component in set, partials first, and links each to the
// components named in its requires list.
func Build(set models.ComponentSet) *Graph {
	g := New()
	all := set.All()
	for _, c := range all {
		g.AddNode(c.Ref())
	}
	for _, c := range all {
		for _, name := range c.Requires {
			g.AddEdge(g.Resolve(name), c.Ref())
		}
	}
	return g
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(ref models.Ref) {
	if g.nodeSet[ref] {
		return
	}
	g.nodeSet[ref] = true
	g.nodes = append(g.nodes, ref)
	if ref.Category != "" {
		g.known[ref.Name] = append(g.known[ref.Name], ref.Category)
	}
}

// AddEdge records that dependent requires dep. Both nodes are added if missing.
func (g *Graph) AddEdge(dep, dependent models.Ref) {
	g.AddNode(dep)
	g.AddNode(dependent)
	if slices.Contains(g.requires[dependent], dep) {
		return
	}
	g.adjacency[dep] = append(g.adjacency[dep], dependent)
	g.requires[dependent] = append(g.requires[dependent], dep)
}

// Resolve maps a requires name to a node. A partial wins over a section of
// the same name. A name matching no known component gets an empty category.
func (g *Graph) Resolve(name string) models.Ref {
	cats := g.known[name]
	if slices.Contains(cats, models.CategoryPartial) {
		return models.Ref{Category: models.CategoryPartial, Name: name}
	}
	if slices.Contains(cats, models.CategorySection) {
		return models.Ref{Category: models.CategorySection, Name: name}
	}
	return models.Ref{Name: name}
}

// Has reports whether ref is a node of the graph.
func (g *Graph) Has(ref models.Ref) bool {
	return g.nodeSet[ref]
}

// Requires returns the direct dependencies of ref in declaration order.
func (g *Graph) Requires(ref models.Ref) []models.Ref {
	return slices.Clone(g.requires[ref])
}

// Closure returns every transitive dependency of ref, deepest first, so that
// installing them in order satisfies each one's own requirements. ref itself
// is excluded. Cycles are cut at the first revisit.
func (g *Graph) Closure(ref models.Ref) []models.Ref {
	visited := map[models.Ref]bool{ref: true}
	var out []models.Ref
	var visit func(models.Ref)
	visit = func(r models.Ref) {
		for _, dep := range g.requires[r] {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			visit(dep)
			out = append(out, dep)
		}
	}
	visit(ref)
	return out
}

// Dependents returns every node that transitively requires ref, in
// breadth-first order.
func (g *Graph) Dependents(ref models.Ref) []models.Ref {
	visited := map[models.Ref]bool{ref: true}
	var out []models.Ref
	queue := []models.Ref{ref}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// levels peels nodes whose requirements are all placed, in insertion order
// within each pass. It returns the placed nodes and those stuck on a cycle.
func (g *Graph) levels() (placed, stuck []models.Ref) {
	pending := make(map[models.Ref]int, len(g.nodes))
	for _, n := range g.nodes {
		pending[n] = len(g.requires[n])
	}

	for _, n := range g.nodes {
		if pending[n] == 0 {
			placed = append(placed, n)
		}
	}
	for next := 0; next < len(placed); next++ {
		for _, d := range g.adjacency[placed[next]] {
			if pending[d]--; pending[d] == 0 {
				placed = append(placed, d)
			}
		}
	}

	for _, n := range g.nodes {
		if pending[n] > 0 {
			stuck = append(stuck, n)
		}
	}
	return placed, stuck
}

// TopologicalSort returns every node with its requirements before it. Nodes
// at the same level keep insertion order. A cycle yields a CycleError.
func (g *Graph) TopologicalSort() ([]models.Ref, error) {
	placed, stuck := g.levels()
	if len(stuck) > 0 {
		return nil, &CycleError{Cycle: stuck}
	}
	return placed, nil
}

// InstallOrder returns the known components in install order. When the
// graph has a cycle the whole order falls back to partials then sections,
// each by name, and the cycle is returned so the caller can report it.
func (g *Graph) InstallOrder() ([]models.Ref, *CycleError) {
	placed, stuck := g.levels()
	if len(stuck) > 0 {
		return g.fallbackOrder(), &CycleError{Cycle: stuck}
	}
	return slices.DeleteFunc(placed, func(r models.Ref) bool { return r.Category == "" }), nil
}

func (g *Graph) fallbackOrder() []models.Ref {
	out := make([]models.Ref, 0, len(g.nodes))
	for _, r := range g.nodes {
		if r.Category != "" {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Ref) int {
		if a.Category != b.Category {
			if a.Category == models.CategoryPartial {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
