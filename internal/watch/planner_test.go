package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kobaj/eleventy/internal/depmap"
)

type stubRenderer struct {
	mu     sync.Mutex
	passes [][]string
	err    error
}

func (r *stubRenderer) Render(ctx context.Context, templates []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, templates)
	return r.err
}

func newTestPlanner(t *testing.T, deps *depmap.Map, renderer Renderer, snapshotPath string) *Planner {
	t.Helper()
	return NewPlanner(deps, renderer, nil, snapshotPath, zap.NewNop().Sugar())
}

func TestPlanner_PlanIncludesDependants(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", []string{"posts/a.md"}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	p := newTestPlanner(t, deps, &stubRenderer{}, "")
	plan := p.Plan([]string{"posts/a.md"})

	if len(plan.Templates) != 2 {
		t.Fatalf("Expected 2 templates, got %v", plan.Templates)
	}
	// Dependencies come before dependants.
	if plan.Templates[0] != "posts/a.md" || plan.Templates[1] != "index.md" {
		t.Errorf("Unexpected build order: %v", plan.Templates)
	}
}

func TestPlanner_PlanNewFile(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", nil); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	p := newTestPlanner(t, deps, &stubRenderer{}, "")
	plan := p.Plan([]string{"./brand-new.md"})

	if len(plan.Templates) != 1 || plan.Templates[0] != "brand-new.md" {
		t.Errorf("Expected new file alone in plan, got %v", plan.Templates)
	}
}

func TestPlanner_PlanExcludesLayouts(t *testing.T) {
	deps := depmap.NewMap(nil)
	err := deps.AddLayoutsToMap(context.Background(), map[string][]string{
		"_includes/base.njk": {"index.md"},
	})
	if err != nil {
		t.Fatalf("AddLayoutsToMap failed: %v", err)
	}

	p := newTestPlanner(t, deps, &stubRenderer{}, "")
	plan := p.Plan([]string{"_includes/base.njk"})

	if len(plan.Templates) != 1 || plan.Templates[0] != "index.md" {
		t.Errorf("Expected only the template using the layout, got %v", plan.Templates)
	}
}

func TestPlanner_PlanUnaffected(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", nil); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := deps.AddDependency("about.md", nil); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	p := newTestPlanner(t, deps, &stubRenderer{}, "")
	plan := p.Plan([]string{"about.md"})

	for _, tmpl := range plan.Templates {
		if tmpl == "index.md" {
			t.Errorf("index.md should not be in plan: %v", plan.Templates)
		}
	}
}

func TestPlanner_RebuildRendersAndResets(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("posts/a.md", []string{"data/tags.json"}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	renderer := &stubRenderer{}
	p := newTestPlanner(t, deps, renderer, "")

	plan, err := p.Rebuild(context.Background(), []string{"posts/a.md"})
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if len(renderer.passes) != 1 {
		t.Fatalf("Expected 1 render pass, got %d", len(renderer.passes))
	}
	if len(renderer.passes[0]) != len(plan.Templates) {
		t.Errorf("Renderer got %v, plan had %v", renderer.passes[0], plan.Templates)
	}

	// Stale facts about the changed file are gone.
	got, ok := deps.GetDependencies("posts/a.md", true)
	if !ok {
		t.Fatal("posts/a.md should still be a known node")
	}
	if len(got) != 0 {
		t.Errorf("Expected dependencies reset, got %v", got)
	}
}

func TestPlanner_RebuildNoopWhenNothingAffected(t *testing.T) {
	deps := depmap.NewMap(nil)

	renderer := &stubRenderer{}
	p := newTestPlanner(t, deps, renderer, "")

	plan, err := p.Rebuild(context.Background(), nil)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if len(plan.Templates) != 0 {
		t.Errorf("Expected empty plan, got %v", plan.Templates)
	}
	if len(renderer.passes) != 0 {
		t.Errorf("Renderer should not have been called, got %d passes", len(renderer.passes))
	}
}

func TestPlanner_RebuildPropagatesRenderError(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", nil); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	renderErr := errors.New("template syntax error")
	renderer := &stubRenderer{err: renderErr}
	p := newTestPlanner(t, deps, renderer, "")

	_, err := p.Rebuild(context.Background(), []string{"index.md"})
	if !errors.Is(err, renderErr) {
		t.Errorf("Expected render error, got %v", err)
	}
}

func TestPlanner_FullRebuild(t *testing.T) {
	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", []string{"posts/a.md"}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	err := deps.AddLayoutsToMap(context.Background(), map[string][]string{
		"_includes/base.njk": {"index.md"},
	})
	if err != nil {
		t.Fatalf("AddLayoutsToMap failed: %v", err)
	}

	renderer := &stubRenderer{}
	p := newTestPlanner(t, deps, renderer, "")

	plan, err := p.FullRebuild(context.Background())
	if err != nil {
		t.Fatalf("FullRebuild failed: %v", err)
	}

	if len(plan.Templates) != 2 {
		t.Fatalf("Expected every template in plan, got %v", plan.Templates)
	}
	// Dependency order, layouts and collections excluded.
	if plan.Templates[0] != "posts/a.md" || plan.Templates[1] != "index.md" {
		t.Errorf("Unexpected build order: %v", plan.Templates)
	}
	if len(renderer.passes) != 1 {
		t.Fatalf("Expected 1 render pass, got %d", len(renderer.passes))
	}
}

func TestPlanner_SnapshotRoundTrip(t *testing.T) {
	snapshotPath := filepath.Join(t.TempDir(), "state", "graph.json")

	deps := depmap.NewMap(nil)
	if err := deps.AddDependency("index.md", []string{"posts/a.md"}); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	p := newTestPlanner(t, deps, &stubRenderer{}, snapshotPath)
	if err := p.SaveSnapshot(); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("Snapshot file missing: %v", err)
	}

	fresh := depmap.NewMap(nil)
	p2 := newTestPlanner(t, fresh, &stubRenderer{}, snapshotPath)
	if err := p2.LoadSnapshot(); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	got, ok := fresh.GetDependencies("index.md", true)
	if !ok {
		t.Fatal("index.md should be known after restore")
	}
	if len(got) != 1 || got[0] != "posts/a.md" {
		t.Errorf("Expected restored dependency, got %v", got)
	}
}

func TestPlanner_LoadSnapshotMissingFile(t *testing.T) {
	p := newTestPlanner(t, depmap.NewMap(nil), &stubRenderer{},
		filepath.Join(t.TempDir(), "nope.json"))
	if err := p.LoadSnapshot(); err != nil {
		t.Errorf("Missing snapshot should not be an error, got %v", err)
	}
}
