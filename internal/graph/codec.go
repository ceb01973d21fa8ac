package graph

import (
	"encoding/json"
	"fmt"
)

// snapshotVersion guards the persisted format. Bump on incompatible changes;
// Restore rejects versions it does not understand.
const snapshotVersion = 1

// snapshot is the on-disk form of a graph: one record per node, in node
// insertion order, with metadata flattened to plain key/value pairs and both
// adjacency lists in edge-insertion order. Persisted state is opaque to
// callers; only Snapshot and Restore understand it.
type snapshot struct {
	Version int            `json:"version"`
	Nodes   []snapshotNode `json:"nodes"`
}

type snapshotNode struct {
	Name     string            `json:"name"`
	Data     map[string]string `json:"data,omitempty"`
	Outgoing []string          `json:"outgoing,omitempty"`
	Incoming []string          `json:"incoming,omitempty"`
}

// Snapshot serializes the graph. Restore(Snapshot(g)) is behaviorally
// indistinguishable from g: same nodes, metadata, edges, and the same
// OverallOrder.
func Snapshot(g *Graph) ([]byte, error) {
	s := snapshot{Version: snapshotVersion, Nodes: make([]snapshotNode, 0, len(g.nodeOrder))}
	for _, name := range g.nodeOrder {
		s.Nodes = append(s.Nodes, snapshotNode{
			Name:     name,
			Data:     g.nodes[name],
			Outgoing: g.outgoing[name],
			Incoming: g.incoming[name],
		})
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot graph: %w", err)
	}
	return data, nil
}

// Restore reconstructs a graph from Snapshot output.
func Restore(data []byte) (*Graph, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore graph: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("restore graph: unsupported snapshot version %d", s.Version)
	}

	g := New()
	for _, n := range s.Nodes {
		if g.HasNode(n.Name) {
			return nil, fmt.Errorf("restore graph: duplicate node %q", n.Name)
		}
		g.AddNode(n.Name, n.Data)
	}
	// Adjacency lists are restored verbatim rather than replayed through
	// AddDependency so that edge-insertion order, and with it the
	// topological tie-break, survives the round trip exactly.
	for _, n := range s.Nodes {
		for _, to := range n.Outgoing {
			if !g.HasNode(to) {
				return nil, fmt.Errorf("restore graph: edge %q -> %q references unknown node", n.Name, to)
			}
		}
		for _, from := range n.Incoming {
			if !g.HasNode(from) {
				return nil, fmt.Errorf("restore graph: edge %q -> %q references unknown node", from, n.Name)
			}
		}
		if len(n.Outgoing) > 0 {
			g.outgoing[n.Name] = clone(n.Outgoing)
		}
		if len(n.Incoming) > 0 {
			g.incoming[n.Name] = clone(n.Incoming)
		}
	}
	return g, nil
}
