// Package tree holds the diagram graph model and the pure mutation logic
// that turns assistant operations into node and edge changes.
package tree

import "encoding/json"

// Position is an absolute canvas coordinate for a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single diagram node.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
}

// Edge is a directed parent-to-child connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the full diagram state exchanged with clients and persisted
// between turns.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns an empty graph with non-nil slices so it serializes
// as {"nodes":[],"edges":[]} rather than nulls.
func NewGraph() Graph {
	return Graph{
		Nodes: []Node{},
		Edges: []Edge{},
	}
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	clone := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(clone.Nodes, g.Nodes)
	copy(clone.Edges, g.Edges)
	return clone
}

// FindNodeByID returns the node with the given ID, or nil.
func (g *Graph) FindNodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// FindNodeByLabel returns the first node whose label matches exactly, or nil.
func (g *Graph) FindNodeByLabel(label string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Label == label {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Children returns the IDs of the nodes that the given node points at.
func (g *Graph) Children(nodeID string) []string {
	var children []string
	for _, e := range g.Edges {
		if e.Source == nodeID {
			children = append(children, e.Target)
		}
	}
	return children
}

// IsStructurallyValid reports whether a decoded client snapshot carries
// usable graph structure. A snapshot counts as valid when it decodes to an
// object whose nodes and edges fields, where present, are JSON arrays.
func IsStructurallyValid(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var probe struct {
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if probe.Nodes == nil && probe.Edges == nil {
		return false
	}
	if probe.Nodes != nil && !isJSONArray(probe.Nodes) {
		return false
	}
	if probe.Edges != nil && !isJSONArray(probe.Edges) {
		return false
	}
	return true
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
