// Package depmap tracks which build artifacts (templates, layouts, and
// computed collections) depend on which others, and answers the queries
// that drive minimal, correctly ordered (re)builds.
//
// The map is a pure in-memory relationship store: callers report facts as
// they discover them during a build pass (template X consumes collection Y,
// layout L is used by templates T1..Tn), and the query layer turns those
// facts into rebuild decisions. It never reads files or renders anything.
//
// Writes follow a single-writer model: the host build pipeline serializes
// mutating calls, so no locking happens here. Queries never mutate state and
// may be issued freely between mutations.
package depmap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kobaj/eleventy/internal/graph"
)

// ErrInvalidNode is returned when a node identity cannot be normalized.
var ErrInvalidNode = errors.New("invalid node")

// NormalizeFn canonicalizes a file path or layout key into the single stable
// string the graph uses as node identity. Two different strings are two
// different nodes, so every identity flows through this before any lookup or
// mutation.
type NormalizeFn func(path string) (string, error)

// DiscoverFn reports the files a layout statically imports. moduleMode
// selects ES-module resolution over script (CommonJS) resolution.
type DiscoverFn func(ctx context.Context, layoutPaths []string, moduleMode bool) ([]string, error)

// CollectionSource provides the set of collection names defined through the
// pipeline's configuration API (as opposed to tag-based collections). It is
// read lazily and memoized per build pass.
type CollectionSource interface {
	CollectionNames() []string
}

// Config configures a Map. Zero-value fields get defaults: the standard path
// normalizer, no configuration collections, and no import spidering.
type Config struct {
	Normalize   NormalizeFn
	Collections CollectionSource

	// Discover supplies layout import spidering; nil disables it even when
	// SpiderImports is set.
	Discover      DiscoverFn
	SpiderImports bool
	ModuleMode    bool
}

// Map is the dependency map: a directed graph with domain semantics layered
// on top. Edge direction is "depends on": from -> to means from can only be
// built after to.
type Map struct {
	graph       *graph.Graph
	normalize   NormalizeFn
	collections CollectionSource
	discover    DiscoverFn
	spider      bool
	moduleMode  bool

	// Memoized configuration collection names; nil means not yet read.
	configCollections map[string]bool
}

// NewMap creates a dependency map. cfg may be nil.
func NewMap(cfg *Config) *Map {
	m := &Map{
		graph:     graph.New(),
		normalize: Normalize,
	}
	if cfg != nil {
		if cfg.Normalize != nil {
			m.normalize = cfg.Normalize
		}
		m.collections = cfg.Collections
		m.discover = cfg.Discover
		m.spider = cfg.SpiderImports && cfg.Discover != nil
		m.moduleMode = cfg.ModuleMode
	}
	return m
}

// Normalize is the default NormalizeFn: slash-separated form with any leading
// "./" stripped. Empty input is an invalid node.
func Normalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidNode)
	}
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p, nil
}

// Graph exposes the underlying graph read-only, for snapshotting and
// inspection. Mutating it directly bypasses the map's invariants.
func (m *Map) Graph() *graph.Graph {
	return m.graph
}

// RestoreGraph swaps in a graph reconstructed from a persisted snapshot.
func (m *Map) RestoreGraph(g *graph.Graph) {
	m.graph = g
}

// Reset discards the whole graph and the memoized collection names. Used
// when the host rebuilds from scratch.
func (m *Map) Reset() {
	m.graph = graph.New()
	m.configCollections = nil
}

// AddDependency records that from depends on each entry in to, creating any
// missing nodes. Entries equal to from are skipped: a node never depends on
// itself. A nil or empty to still registers from as a known node.
func (m *Map) AddDependency(from string, to []string) error {
	nf, err := m.normalize(from)
	if err != nil {
		return err
	}
	m.graph.AddNode(nf, nil)
	for _, t := range to {
		nt, err := m.normalize(t)
		if err != nil {
			return err
		}
		m.addEdge(nf, nt)
	}
	return nil
}

// ResetNode removes every recorded dependency of node, leaving its
// dependants untouched. Called before a file is recompiled so stale facts do
// not linger once fresh ones are asserted; "X is used by Y" is re-asserted by
// Y's own recompilation, not by X's.
func (m *Map) ResetNode(node string) error {
	n, err := m.normalize(node)
	if err != nil {
		return err
	}
	if !m.graph.HasNode(n) {
		return nil
	}
	deps, err := m.graph.DirectDependenciesOf(n)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		m.graph.RemoveDependency(n, dep)
	}
	return nil
}

// addEdge adds from -> to, refusing self-edges.
func (m *Map) addEdge(from, to string) {
	if from == to {
		return
	}
	m.graph.AddDependency(from, to)
}

// mergeNodeData merges key/value pairs into a node's metadata, creating the
// node if needed.
func (m *Map) mergeNodeData(name string, data map[string]string) {
	if !m.graph.HasNode(name) {
		m.graph.AddNode(name, nil)
	}
	existing, err := m.graph.NodeData(name)
	if err != nil {
		return
	}
	if existing == nil {
		existing = make(map[string]string, len(data))
	}
	for k, v := range data {
		existing[k] = v
	}
	// Guarded by HasNode above; SetNodeData cannot fail here.
	_ = m.graph.SetNodeData(name, existing)
}

// nodeDataValue reads one metadata value, empty when the node or key is
// absent.
func (m *Map) nodeDataValue(name, key string) string {
	if !m.graph.HasNode(name) {
		return ""
	}
	data, err := m.graph.NodeData(name)
	if err != nil || data == nil {
		return ""
	}
	return data[key]
}

func (m *Map) isLayoutNode(name string) bool {
	return m.nodeDataValue(name, nodeTypeKey) == nodeTypeLayout
}
