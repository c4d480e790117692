package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Placement constants for newly inserted nodes.
const (
	horizontalSpacing  = 140.0
	verticalSpacing    = 120.0
	collisionThreshold = 40.0
	collisionShiftX    = 140.0
	collisionShiftY    = 20.0
	maxCollisionShifts = 5
)

// Side of a parent a child is placed on.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Operation is a single graph mutation declared by the assistant. Value,
// Parent and Side stay loosely typed because the LLM emits them in many
// shapes (strings, numbers, nested objects).
type Operation struct {
	Action string      `json:"action"`
	Value  interface{} `json:"value,omitempty"`
	Parent interface{} `json:"parent,omitempty"`
	Side   interface{} `json:"side,omitempty"`
}

// Alternate keys the assistant uses for the side field.
var sideAliases = []string{"side", "position", "direction", "location", "where"}

// UnmarshalJSON accepts the assistant's loose operation shape, folding the
// known side aliases into Side.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if action, ok := fields["action"].(string); ok {
		op.Action = action
	}
	op.Value = fields["value"]
	op.Parent = fields["parent"]
	for _, alias := range sideAliases {
		if v, ok := fields[alias]; ok && v != nil {
			op.Side = v
			break
		}
	}
	return nil
}

// ApplyResult is the per-operation outcome of a mutation pass.
type ApplyResult struct {
	Operation Operation `json:"operation"`
	Success   bool      `json:"success"`
	NodeID    string    `json:"node_id,omitempty"`
	EdgeID    string    `json:"edge_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// ReasonBothChildren is the rejection reason when a parent already holds a
// left and a right child.
const ReasonBothChildren = "Parent already has both left and right children"

// Apply executes the operations against the graph in place, one result per
// operation in input order. Only insert operations mutate the graph; every
// other action is recorded as a skipped failure. Apply never panics: an
// unexpected panic inside an operation is converted into that operation's
// failure result.
func Apply(g *Graph, operations []Operation) []ApplyResult {
	results := make([]ApplyResult, 0, len(operations))
	for _, op := range operations {
		results = append(results, applyOne(g, op))
	}
	return results
}

func applyOne(g *Graph, op Operation) (result ApplyResult) {
	result = ApplyResult{Operation: op}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Reason = fmt.Sprintf("operation failed: %v", r)
		}
	}()

	if !strings.EqualFold(op.Action, "insert") {
		result.Reason = fmt.Sprintf("unsupported action %q: operation skipped", op.Action)
		return result
	}

	label := NormalizeLabel(op.Value)

	explicitPos, side := resolveSide(op.Side)
	parent := resolveParent(g, op.Parent)

	var pos Position
	switch {
	case explicitPos != nil:
		pos = *explicitPos
	case parent != nil:
		var rejected bool
		pos, rejected = placeUnderParent(g, parent, side)
		if rejected {
			result.Reason = ReasonBothChildren
			return result
		}
	default:
		pos = placeAtRootLevel(g)
	}

	node := Node{
		ID:       uuid.New().String(),
		Label:    label,
		Position: pos,
	}
	g.Nodes = append(g.Nodes, node)
	result.Success = true
	result.NodeID = node.ID

	if parent != nil {
		edge := Edge{
			ID:     uuid.New().String(),
			Source: parent.ID,
			Target: node.ID,
		}
		g.Edges = append(g.Edges, edge)
		result.EdgeID = edge.ID
	}
	return result
}

// resolveSide classifies the raw side value. A mapping carrying x or y is an
// explicit position and takes precedence over any side text.
func resolveSide(raw interface{}) (*Position, string) {
	if raw == nil {
		return nil, ""
	}

	if m, ok := raw.(map[string]interface{}); ok {
		if _, hasX := m["x"]; hasX {
			return positionFromMap(m), ""
		}
		if _, hasY := m["y"]; hasY {
			return positionFromMap(m), ""
		}
		return nil, ""
	}

	text := strings.ToLower(strings.TrimSpace(stringify(raw)))
	switch {
	case text == "l" || strings.Contains(text, "left") || strings.Contains(text, "west"):
		return nil, SideLeft
	case text == "r" || strings.Contains(text, "right") || strings.Contains(text, "east"):
		return nil, SideRight
	default:
		return nil, ""
	}
}

func positionFromMap(m map[string]interface{}) *Position {
	pos := &Position{}
	if x, ok := toFloat(m["x"]); ok {
		pos.X = x
	}
	if y, ok := toFloat(m["y"]); ok {
		pos.Y = y
	}
	return pos
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// resolveParent matches the raw parent reference against node ids first,
// then labels. An unresolved parent is not an error: the insert proceeds as
// a root-level orphan.
func resolveParent(g *Graph, raw interface{}) *Node {
	if raw == nil {
		return nil
	}
	ref := strings.TrimSpace(stringify(raw))
	if ref == "" {
		return nil
	}
	if node := g.FindNodeByID(ref); node != nil {
		return node
	}
	return g.FindNodeByLabel(ref)
}

// placeUnderParent computes the position for a new child. It rejects the
// insert when the parent already has children on both sides.
func placeUnderParent(g *Graph, parent *Node, side string) (Position, bool) {
	hasLeft, hasRight := childSides(g, parent)
	if hasLeft && hasRight {
		return Position{}, true
	}

	// An unresolved side defaults to right placement.
	x := parent.Position.X + horizontalSpacing
	if side == SideLeft {
		x = parent.Position.X - horizontalSpacing
	}
	pos := Position{X: x, Y: parent.Position.Y + verticalSpacing}

	for attempt := 0; attempt < maxCollisionShifts && collides(g, pos); attempt++ {
		pos.X += collisionShiftX
		pos.Y += collisionShiftY
	}
	return pos, false
}

// childSides reports which sides of the parent are already occupied. A
// child left of the parent counts as left; everything else, including a
// child sharing the parent's x, counts as right.
func childSides(g *Graph, parent *Node) (hasLeft, hasRight bool) {
	for _, e := range g.Edges {
		if e.Source != parent.ID {
			continue
		}
		child := g.FindNodeByID(e.Target)
		if child != nil && child.Position.X < parent.Position.X {
			hasLeft = true
		} else {
			hasRight = true
		}
	}
	return hasLeft, hasRight
}

func collides(g *Graph, pos Position) bool {
	for _, n := range g.Nodes {
		if math.Abs(n.Position.X-pos.X) < collisionThreshold && math.Abs(n.Position.Y-pos.Y) < collisionThreshold {
			return true
		}
	}
	return false
}

// placeAtRootLevel positions an unparented node to the right of the
// existing layout, vertically centered.
func placeAtRootLevel(g *Graph) Position {
	if len(g.Nodes) == 0 {
		return Position{X: 0, Y: 0}
	}

	maxX := g.Nodes[0].Position.X
	minY := g.Nodes[0].Position.Y
	maxY := g.Nodes[0].Position.Y
	for _, n := range g.Nodes[1:] {
		if n.Position.X > maxX {
			maxX = n.Position.X
		}
		if n.Position.Y < minY {
			minY = n.Position.Y
		}
		if n.Position.Y > maxY {
			maxY = n.Position.Y
		}
	}
	return Position{X: maxX + horizontalSpacing, Y: (minY + maxY) / 2}
}
