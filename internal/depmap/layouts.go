package depmap

import (
	"context"
	"fmt"
	"sort"
)

// OnLayoutsDiscovered is the hook the configuration/layout-loading subsystem
// calls whenever the full set of layout-to-template mappings changes. It must
// be awaited to completion before any subsequent graph read relies on layout
// edges being current.
func (m *Map) OnLayoutsDiscovered(ctx context.Context, layouts map[string][]string) error {
	return m.AddLayoutsToMap(ctx, layouts)
}

// AddLayoutsToMap replaces the layout portion of the graph with a freshly
// discovered mapping of layout -> templates using that layout. Layouts absent
// from the new mapping are removed wholesale; surviving templates keep their
// other edges (those are refreshed by ResetNode when the template itself is
// recompiled, not here). When import spidering is enabled, each layout also
// gains edges to the files it statically imports.
//
// Layout keys are processed in sorted order so that edge insertion, and the
// topological tie-break that hangs off it, is deterministic regardless of
// map iteration order.
func (m *Map) AddLayoutsToMap(ctx context.Context, layouts map[string][]string) error {
	normalized := make(map[string][]string, len(layouts))
	for layout, templates := range layouts {
		nl, err := m.normalize(layout)
		if err != nil {
			return fmt.Errorf("add layouts: %w", err)
		}
		nts := make([]string, 0, len(templates))
		for _, t := range templates {
			nt, err := m.normalize(t)
			if err != nil {
				return fmt.Errorf("add layouts: %w", err)
			}
			nts = append(nts, nt)
		}
		normalized[nl] = nts
	}

	m.removeLayoutNodes(normalized)

	keys := make([]string, 0, len(normalized))
	for layout := range normalized {
		keys = append(keys, layout)
	}
	sort.Strings(keys)

	for _, layout := range keys {
		m.mergeNodeData(layout, map[string]string{nodeTypeKey: nodeTypeLayout})
		for _, template := range normalized[layout] {
			m.addEdge(template, layout)
		}
		if m.spider {
			imports, err := m.discover(ctx, []string{layout}, m.moduleMode)
			if err != nil {
				return fmt.Errorf("add layouts: discover imports of %s: %w", layout, err)
			}
			for _, imp := range imports {
				ni, err := m.normalize(imp)
				if err != nil {
					return fmt.Errorf("add layouts: %w", err)
				}
				m.addEdge(layout, ni)
			}
		}
	}
	return nil
}

// removeLayoutNodes deletes every known layout node absent from the new
// mapping's keys. Walks the topological order so removal touches dependants
// before their layouts.
func (m *Map) removeLayoutNodes(newLayouts map[string][]string) {
	for _, node := range m.graph.OverallOrder() {
		if !m.isLayoutNode(node) {
			continue
		}
		if _, ok := newLayouts[node]; !ok {
			m.graph.RemoveNode(node)
		}
	}
}

// IsLayout reports whether node is known and tagged as a layout.
func (m *Map) IsLayout(node string) bool {
	n, err := m.normalize(node)
	if err != nil {
		return false
	}
	return m.isLayoutNode(n)
}

// GetLayoutsUsedBy returns node itself if it is a layout, plus every direct
// dependency of node that is layout-typed. Layout chains are covered one
// level at a time: ask again with the returned layout to walk further up.
func (m *Map) GetLayoutsUsedBy(node string) []string {
	n, err := m.normalize(node)
	if err != nil || !m.graph.HasNode(n) {
		return []string{}
	}
	layouts := []string{}
	if m.isLayoutNode(n) {
		layouts = append(layouts, n)
	}
	deps, err := m.graph.DirectDependenciesOf(n)
	if err != nil {
		return layouts
	}
	for _, dep := range deps {
		if m.isLayoutNode(dep) {
			layouts = append(layouts, dep)
		}
	}
	return layouts
}
