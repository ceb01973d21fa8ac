package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kobaj/eleventy/internal/depmap"
	"github.com/kobaj/eleventy/internal/graph"
)

// Renderer turns templates into output files. The planner decides what to
// render and in which order; the renderer does the work.
type Renderer interface {
	Render(ctx context.Context, templates []string) error
}

// BuildPlan is one incremental build pass: the files that changed and the
// templates that must be rebuilt because of them, in valid build order.
type BuildPlan struct {
	ID        string
	Changed   []string
	Templates []string
}

// Planner drives incremental rebuilds off the dependency map. It is the
// single writer for the map: Rebuild serializes on an internal mutex, so the
// map itself needs no locking.
type Planner struct {
	deps         *depmap.Map
	renderer     Renderer
	reload       *ReloadServer
	log          *zap.SugaredLogger
	snapshotPath string
	buildMutex   sync.Mutex
}

// NewPlanner creates a planner. reload may be nil when no dev server is
// running; snapshotPath may be empty to disable persistence.
func NewPlanner(deps *depmap.Map, renderer Renderer, reload *ReloadServer, snapshotPath string, log *zap.SugaredLogger) *Planner {
	return &Planner{
		deps:         deps,
		renderer:     renderer,
		reload:       reload,
		log:          log,
		snapshotPath: snapshotPath,
	}
}

// Plan computes the rebuild set for a batch of changed files. A template is
// included when any changed file is relevant to it, layouts included in the
// reachability walk; changed files the map has never seen are appended at the
// end so new files get a first build.
func (p *Planner) Plan(changed []string) *BuildPlan {
	plan := &BuildPlan{ID: uuid.New().String()}

	for _, c := range changed {
		n, err := depmap.Normalize(c)
		if err != nil {
			p.log.Debugw("skipping unusable path", "path", c, "error", err)
			continue
		}
		plan.Changed = append(plan.Changed, n)
	}

	seen := make(map[string]bool)
	for _, node := range p.deps.GetTemplateOrder() {
		if depmap.IsCollectionKey(node) || p.deps.IsLayout(node) {
			continue
		}
		for _, c := range plan.Changed {
			if p.deps.IsFileRelevantTo(node, c, true) {
				if !seen[node] {
					seen[node] = true
					plan.Templates = append(plan.Templates, node)
				}
				break
			}
		}
	}

	// A changed file with no node yet is new; build it so it can report its
	// own dependencies.
	for _, c := range plan.Changed {
		if !seen[c] && !p.deps.IsLayout(c) {
			seen[c] = true
			plan.Templates = append(plan.Templates, c)
		}
	}

	return plan
}

// Rebuild plans and executes one incremental build pass for the changed
// files, notifying reload clients along the way and persisting the refreshed
// dependency snapshot on success.
func (p *Planner) Rebuild(ctx context.Context, changed []string) (*BuildPlan, error) {
	p.buildMutex.Lock()
	defer p.buildMutex.Unlock()

	start := time.Now()
	plan := p.Plan(changed)
	if len(plan.Templates) == 0 {
		p.log.Debugw("no templates affected", "changed", changed)
		return plan, nil
	}

	p.log.Infow("rebuilding",
		"build", plan.ID,
		"changed", len(plan.Changed),
		"templates", len(plan.Templates),
	)
	if p.reload != nil {
		p.reload.NotifyBuilding(plan.ID, plan.Changed)
	}

	// Stale facts about the changed files go first; rendering re-asserts the
	// fresh ones.
	for _, c := range plan.Changed {
		if err := p.deps.ResetNode(c); err != nil {
			return plan, fmt.Errorf("reset %s: %w", c, err)
		}
	}

	if err := p.renderer.Render(ctx, plan.Templates); err != nil {
		p.log.Errorw("build failed", "build", plan.ID, "error", err)
		if p.reload != nil {
			p.reload.NotifyError(plan.ID, err)
		}
		return plan, err
	}

	if err := p.SaveSnapshot(); err != nil {
		p.log.Warnw("failed to persist dependency snapshot", "error", err)
	}

	duration := time.Since(start)
	p.log.Infow("rebuild complete", "build", plan.ID, "duration", duration)
	if p.reload != nil {
		p.reload.NotifySuccess(plan.ID, duration)
		p.reload.NotifyReload(plan.ID)
	}
	return plan, nil
}

// FullRebuild rebuilds every known template. Used when a configuration
// change invalidates incremental assumptions; the memoized collection names
// are dropped so the next build pass re-reads them.
func (p *Planner) FullRebuild(ctx context.Context) (*BuildPlan, error) {
	p.deps.InvalidateCollectionNames()

	templates := []string{}
	for _, node := range p.deps.GetTemplateOrder() {
		if depmap.IsCollectionKey(node) || p.deps.IsLayout(node) {
			continue
		}
		templates = append(templates, node)
	}
	return p.Rebuild(ctx, templates)
}

// SaveSnapshot writes the dependency graph to the configured snapshot path.
func (p *Planner) SaveSnapshot() error {
	if p.snapshotPath == "" {
		return nil
	}
	data, err := graph.Snapshot(p.deps.Graph())
	if err != nil {
		return fmt.Errorf("snapshot graph: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(p.snapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot warm-starts the dependency map from a persisted snapshot. A
// missing file is not an error; the map simply starts cold.
func (p *Planner) LoadSnapshot() error {
	if p.snapshotPath == "" {
		return nil
	}
	data, err := os.ReadFile(p.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	g, err := graph.Restore(data)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	p.deps.RestoreGraph(g)
	p.log.Infow("dependency snapshot loaded", "path", p.snapshotPath, "nodes", g.Size())
	return nil
}
