package tree

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootedGraph() Graph {
	g := NewGraph()
	g.Nodes = append(g.Nodes, Node{
		ID:       "root",
		Label:    "A",
		Position: Position{X: 0, Y: 0},
	})
	return g
}

func TestApply_InsertLeftChild(t *testing.T) {
	// Arrange
	g := newRootedGraph()
	ops := []Operation{
		{Action: "insert", Value: "B", Parent: "A", Side: "left"},
	}

	// Act
	results := Apply(&g, ops)

	// Assert
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.NotEmpty(t, results[0].NodeID)
	assert.NotEmpty(t, results[0].EdgeID)

	require.Len(t, g.Nodes, 2)
	inserted := g.Nodes[1]
	assert.Equal(t, "B", inserted.Label)
	assert.Less(t, inserted.Position.X, 0.0)
	assert.Equal(t, 120.0, inserted.Position.Y)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "root", g.Edges[0].Source)
	assert.Equal(t, inserted.ID, g.Edges[0].Target)
}

func TestApply_RejectsThirdChild(t *testing.T) {
	// Arrange: root with children on both sides
	g := newRootedGraph()
	first := Apply(&g, []Operation{
		{Action: "insert", Value: "B", Parent: "A", Side: "left"},
	})
	require.True(t, first[0].Success)
	second := Apply(&g, []Operation{
		{Action: "insert", Value: "C", Parent: "A", Side: "right"},
	})
	require.True(t, second[0].Success)

	nodesBefore := len(g.Nodes)
	edgesBefore := len(g.Edges)

	// Act
	results := Apply(&g, []Operation{
		{Action: "insert", Value: "D", Parent: "A"},
	})

	// Assert
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "Parent already has both left and right children", results[0].Reason)
	assert.Empty(t, results[0].NodeID)
	assert.Len(t, g.Nodes, nodesBefore)
	assert.Len(t, g.Edges, edgesBefore)
}

func TestApply_RejectionDoesNotAbortBatch(t *testing.T) {
	// Arrange
	g := newRootedGraph()
	Apply(&g, []Operation{
		{Action: "insert", Value: "B", Parent: "A", Side: "left"},
		{Action: "insert", Value: "C", Parent: "A", Side: "right"},
	})

	// Act: a rejected insert followed by an unparented insert
	results := Apply(&g, []Operation{
		{Action: "insert", Value: "D", Parent: "A"},
		{Action: "insert", Value: "E"},
	})

	// Assert
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Empty(t, results[1].EdgeID)
}

func TestApply_CollisionShiftsPosition(t *testing.T) {
	// Arrange: two inserts on the same side of the same parent
	g := newRootedGraph()

	// Act
	r1 := Apply(&g, []Operation{{Action: "insert", Value: "B", Parent: "A", Side: "right"}})
	require.True(t, r1[0].Success)
	firstPos := g.Nodes[len(g.Nodes)-1].Position

	r2 := Apply(&g, []Operation{{Action: "insert", Value: "C", Parent: "A", Side: "right"}})
	require.True(t, r2[0].Success)
	secondPos := g.Nodes[len(g.Nodes)-1].Position

	// Assert: the second node landed a configured offset away
	dx := math.Abs(secondPos.X - firstPos.X)
	dy := math.Abs(secondPos.Y - firstPos.Y)
	assert.True(t, dx >= collisionThreshold || dy >= collisionThreshold,
		"second insert should be shifted away from the first")
}

func TestApply_ExplicitPositionWins(t *testing.T) {
	// Arrange
	g := newRootedGraph()
	ops := []Operation{
		{
			Action: "insert",
			Value:  "B",
			Parent: "A",
			Side:   map[string]interface{}{"x": float64(300), "y": float64(50)},
		},
	}

	// Act
	results := Apply(&g, ops)

	// Assert
	require.True(t, results[0].Success)
	inserted := g.Nodes[len(g.Nodes)-1]
	assert.Equal(t, 300.0, inserted.Position.X)
	assert.Equal(t, 50.0, inserted.Position.Y)
	// Parent still resolved, so the edge exists
	assert.NotEmpty(t, results[0].EdgeID)
}

func TestApply_ParentResolvedByIDThenLabel(t *testing.T) {
	// Arrange: a node whose label collides with another node's id
	g := NewGraph()
	g.Nodes = append(g.Nodes,
		Node{ID: "n1", Label: "Root", Position: Position{X: 0, Y: 0}},
		Node{ID: "Root", Label: "Decoy", Position: Position{X: 400, Y: 0}},
	)

	// Act
	results := Apply(&g, []Operation{{Action: "insert", Value: "B", Parent: "Root"}})

	// Assert: id match wins over label match
	require.True(t, results[0].Success)
	assert.Equal(t, "Root", g.Edges[0].Source)
}

func TestApply_UnresolvedParentInsertsOrphan(t *testing.T) {
	// Arrange
	g := newRootedGraph()

	// Act
	results := Apply(&g, []Operation{{Action: "insert", Value: "B", Parent: "nope"}})

	// Assert
	require.True(t, results[0].Success)
	assert.Empty(t, results[0].EdgeID)
	assert.Len(t, g.Edges, 0)

	inserted := g.Nodes[len(g.Nodes)-1]
	assert.Equal(t, horizontalSpacing, inserted.Position.X)
}

func TestApply_EmptyGraphPlacesAtOrigin(t *testing.T) {
	g := NewGraph()

	results := Apply(&g, []Operation{{Action: "insert", Value: "Root"}})

	require.True(t, results[0].Success)
	assert.Equal(t, Position{X: 0, Y: 0}, g.Nodes[0].Position)
}

func TestApply_NonInsertActionsSkipped(t *testing.T) {
	g := newRootedGraph()

	results := Apply(&g, []Operation{
		{Action: "delete", Value: "A"},
		{Action: "rotate", Value: "A"},
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Contains(t, r.Reason, "unsupported action")
	}
	assert.Len(t, g.Nodes, 1)
	assert.Len(t, g.Edges, 0)
}

func TestApply_EmptyOperationsIsNoOp(t *testing.T) {
	// Arrange
	g := newRootedGraph()
	before := g.Clone()

	// Act
	results := Apply(&g, nil)

	// Assert
	assert.Empty(t, results)
	assert.Equal(t, before.Nodes, g.Nodes)
	assert.Equal(t, before.Edges, g.Edges)
}

func TestOperation_UnmarshalSideAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		side interface{}
	}{
		{
			name: "side key",
			raw:  `{"action":"insert","value":"B","side":"left"}`,
			side: "left",
		},
		{
			name: "position key",
			raw:  `{"action":"insert","value":"B","position":"right"}`,
			side: "right",
		},
		{
			name: "direction key",
			raw:  `{"action":"insert","value":"B","direction":"west"}`,
			side: "west",
		},
		{
			name: "no side key",
			raw:  `{"action":"insert","value":"B"}`,
			side: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var op Operation
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &op))
			assert.Equal(t, "insert", op.Action)
			assert.Equal(t, tt.side, op.Side)
		})
	}
}

func TestResolveSide_TextClassification(t *testing.T) {
	tests := []struct {
		raw      interface{}
		expected string
	}{
		{"left", SideLeft},
		{"L", SideLeft},
		{"left_child", SideLeft},
		{"west", SideLeft},
		{"right", SideRight},
		{"r", SideRight},
		{"rightChild", SideRight},
		{"east", SideRight},
		{"middle", ""},
		{nil, ""},
	}

	for _, tt := range tests {
		pos, side := resolveSide(tt.raw)
		assert.Nil(t, pos)
		assert.Equal(t, tt.expected, side, "raw side %v", tt.raw)
	}
}
