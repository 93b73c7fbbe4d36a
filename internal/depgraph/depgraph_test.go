package depgraph

import (
	"errors"
	"slices"
	"testing"

	"github.com/starford/componentkit/internal/models"
)

func sec(name string) models.Ref { return models.Ref{Category: models.CategorySection, Name: name} }
func par(name string) models.Ref { return models.Ref{Category: models.CategoryPartial, Name: name} }

func comp(cat models.Category, name string, requires ...string) *models.Component {
	return &models.Component{Name: name, Category: cat, Requires: requires}
}

func TestTopologicalSortEmpty(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil || order != nil {
		t.Fatalf("got %v, %v", order, err)
	}
}

func TestBuildOrdersDependenciesFirst(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{
		Sections: []*models.Component{
			comp(models.CategorySection, "banner", "ctas"),
			comp(models.CategorySection, "hero", "text", "ctas"),
		},
		Partials: []*models.Component{
			comp(models.CategoryPartial, "button"),
			comp(models.CategoryPartial, "ctas", "button"),
			comp(models.CategoryPartial, "text"),
		},
	}
	order, err := Build(set).TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Ref{par("button"), par("text"), par("ctas"), sec("banner"), sec("hero")}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestResolvePrefersPartial(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{
		Sections: []*models.Component{comp(models.CategorySection, "media"), comp(models.CategorySection, "only")},
		Partials: []*models.Component{comp(models.CategoryPartial, "media")},
	}
	g := Build(set)
	if got := g.Resolve("media"); got != par("media") {
		t.Errorf("Resolve(media) = %v", got)
	}
	if got := g.Resolve("only"); got != sec("only") {
		t.Errorf("Resolve(only) = %v", got)
	}
	if got := g.Resolve("ghost"); got.Category != "" {
		t.Errorf("Resolve(ghost) = %v, want unknown category", got)
	}
}

func TestClosureDeepestFirst(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{
		Sections: []*models.Component{comp(models.CategorySection, "hero", "ctas", "text")},
		Partials: []*models.Component{
			comp(models.CategoryPartial, "button", "icon"),
			comp(models.CategoryPartial, "ctas", "button"),
			comp(models.CategoryPartial, "icon"),
			comp(models.CategoryPartial, "text", "icon"),
		},
	}
	got := Build(set).Closure(sec("hero"))
	want := []models.Ref{par("icon"), par("button"), par("ctas"), par("text")}
	if !slices.Equal(got, want) {
		t.Errorf("Closure = %v, want %v", got, want)
	}
}

func TestClosureIncludesUnknown(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{Sections: []*models.Component{comp(models.CategorySection, "hero", "ghost")}}
	got := Build(set).Closure(sec("hero"))
	if len(got) != 1 || got[0] != (models.Ref{Name: "ghost"}) {
		t.Errorf("Closure = %v", got)
	}
}

func TestDependents(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{
		Sections: []*models.Component{comp(models.CategorySection, "hero", "ctas")},
		Partials: []*models.Component{
			comp(models.CategoryPartial, "button"),
			comp(models.CategoryPartial, "ctas", "button"),
		},
	}
	got := Build(set).Dependents(par("button"))
	want := []models.Ref{par("ctas"), sec("hero")}
	if !slices.Equal(got, want) {
		t.Errorf("Dependents = %v, want %v", got, want)
	}
}

func TestCycle(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{
		Sections: []*models.Component{comp(models.CategorySection, "alpha")},
		Partials: []*models.Component{
			comp(models.CategoryPartial, "b", "a"),
			comp(models.CategoryPartial, "a", "b"),
		},
	}
	g := Build(set)

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("want CycleError, got %v", err)
	}
	if len(cycleErr.Cycle) != 2 {
		t.Errorf("cycle = %v", cycleErr.Cycle)
	}

	order, cycle := g.InstallOrder()
	if cycle == nil {
		t.Fatal("InstallOrder should report the cycle")
	}
	want := []models.Ref{par("a"), par("b"), sec("alpha")}
	if !slices.Equal(order, want) {
		t.Errorf("fallback order = %v, want %v", order, want)
	}

	closure := g.Closure(par("a"))
	if !slices.Equal(closure, []models.Ref{par("b")}) {
		t.Errorf("closure through cycle = %v", closure)
	}
}

func TestInstallOrderSkipsUnknown(t *testing.T) {
	t.Parallel()
	set := models.ComponentSet{Sections: []*models.Component{comp(models.CategorySection, "hero", "ghost")}}
	order, cycle := Build(set).InstallOrder()
	if cycle != nil {
		t.Fatal(cycle)
	}
	if !slices.Equal(order, []models.Ref{sec("hero")}) {
		t.Errorf("order = %v", order)
	}
}

func TestDuplicateEdgeIgnored(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge(par("a"), sec("b"))
	g.AddEdge(par("a"), sec("b"))
	if got := g.Requires(sec("b")); len(got) != 1 {
		t.Errorf("Requires = %v", got)
	}
}
