// Package graph implements the directed graph underlying the dependency map.
//
// Nodes are identified by string name and may carry small key/value metadata.
// Node and edge insertion order is preserved, which makes every traversal,
// including the topological order, deterministic for a given sequence of
// mutations. Cycles are permitted: traversals and ordering terminate by
// visiting every node at most once, breaking cycles at the first node seen.
package graph

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned by predecessor/successor queries on a node
// that was never added to the graph.
var ErrNodeNotFound = errors.New("node not found")

// Graph is a directed graph over string-named nodes with optional metadata.
// An edge from -> to means "from depends on to": to must be available before
// from. Graph is not safe for concurrent mutation; the caller serializes
// writes.
type Graph struct {
	nodes     map[string]map[string]string
	nodeOrder []string

	// Adjacency lists in edge-insertion order.
	outgoing map[string][]string
	incoming map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]map[string]string),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node with optional metadata. Adding an existing node is a
// no-op; its metadata is left untouched.
func (g *Graph) AddNode(name string, data map[string]string) {
	if _, ok := g.nodes[name]; ok {
		return
	}
	g.nodes[name] = data
	g.nodeOrder = append(g.nodeOrder, name)
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// NodeData returns the node's metadata. The returned map is the live map;
// callers that mutate it own the consequences.
func (g *Graph) NodeData(name string) (map[string]string, error) {
	data, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return data, nil
}

// SetNodeData replaces the node's metadata.
func (g *Graph) SetNodeData(name string, data map[string]string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	g.nodes[name] = data
	return nil
}

// RemoveNode deletes a node and every edge that references it. Removing an
// unknown node is a no-op.
func (g *Graph) RemoveNode(name string) {
	if _, ok := g.nodes[name]; !ok {
		return
	}
	for _, to := range g.outgoing[name] {
		g.incoming[to] = remove(g.incoming[to], name)
	}
	for _, from := range g.incoming[name] {
		g.outgoing[from] = remove(g.outgoing[from], name)
	}
	delete(g.outgoing, name)
	delete(g.incoming, name)
	delete(g.nodes, name)
	g.nodeOrder = remove(g.nodeOrder, name)
}

// AddDependency records the edge from -> to, creating either endpoint if it
// does not exist yet. Duplicate edges are ignored.
func (g *Graph) AddDependency(from, to string) {
	g.AddNode(from, nil)
	g.AddNode(to, nil)
	if contains(g.outgoing[from], to) {
		return
	}
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
}

// RemoveDependency deletes the edge from -> to if present.
func (g *Graph) RemoveDependency(from, to string) {
	g.outgoing[from] = remove(g.outgoing[from], to)
	g.incoming[to] = remove(g.incoming[to], from)
}

// DirectDependenciesOf returns the nodes that name depends on directly, in
// edge-insertion order.
func (g *Graph) DirectDependenciesOf(name string) ([]string, error) {
	if _, ok := g.nodes[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return clone(g.outgoing[name]), nil
}

// DirectDependantsOf returns the nodes that depend on name directly, in
// edge-insertion order.
func (g *Graph) DirectDependantsOf(name string) ([]string, error) {
	if _, ok := g.nodes[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return clone(g.incoming[name]), nil
}

// DependenciesOf returns the transitive closure of name's dependencies in
// first-visited order. name itself is never included, even when it sits on a
// cycle.
func (g *Graph) DependenciesOf(name string) ([]string, error) {
	return g.closure(name, g.outgoing)
}

// DependantsOf returns the transitive closure of the nodes depending on name
// in first-visited order, excluding name itself.
func (g *Graph) DependantsOf(name string) ([]string, error) {
	return g.closure(name, g.incoming)
}

func (g *Graph) closure(start string, adjacency map[string][]string) ([]string, error) {
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, start)
	}
	visited := map[string]bool{start: true}
	result := []string{}
	queue := clone(adjacency[start])
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, current)
		queue = append(queue, adjacency[current]...)
	}
	return result, nil
}

// OverallOrder produces a total order of all nodes such that for every edge
// from -> to, to precedes from, except across cycles, which are broken at
// the first node reached. The order is a post-order depth-first traversal
// seeded by node insertion order, so it is stable for a given mutation
// sequence.
func (g *Graph) OverallOrder() []string {
	visited := make(map[string]bool, len(g.nodeOrder))
	order := make([]string, 0, len(g.nodeOrder))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range g.outgoing[name] {
			visit(dep)
		}
		order = append(order, name)
	}

	for _, name := range g.nodeOrder {
		visit(name)
	}
	return order
}

// Nodes returns all node names in insertion order.
func (g *Graph) Nodes() []string {
	return clone(g.nodeOrder)
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func clone(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}
