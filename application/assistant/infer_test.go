package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferOperations(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		expectedValue string
	}{
		{
			name:          "create node phrasing",
			reply:         "Sure, I will create node 42 for you.",
			expectedValue: "42",
		},
		{
			name:          "add node phrasing",
			reply:         "Let me add node Root here.",
			expectedValue: "Root",
		},
		{
			name:          "insert node phrasing",
			reply:         "I can insert node 7 under the root.",
			expectedValue: "7",
		},
		{
			name:          "node with label phrasing",
			reply:         "A new node with label 90 was requested.",
			expectedValue: "90",
		},
		{
			name:          "node named phrasing",
			reply:         "There should be a node named Alpha.",
			expectedValue: "Alpha",
		},
		{
			name:          "double-quoted label keeps all words",
			reply:         `I will add node "Left Child" under the root.`,
			expectedValue: "Left Child",
		},
		{
			name:          "single-quoted label keeps all words",
			reply:         "Sure, let me create node 'Right Sibling' now.",
			expectedValue: "Right Sibling",
		},
		{
			name:          "unquoted label is a single token",
			reply:         "I will add node Left Child for you.",
			expectedValue: "Left",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			turn := &Turn{Reply: tt.reply}

			// Act
			ops := InferOperations(turn)

			// Assert: exactly one insert with the value, no parent or side
			require.Len(t, ops, 1)
			assert.Equal(t, "insert", ops[0].Action)
			assert.Equal(t, tt.expectedValue, ops[0].Value)
			assert.Nil(t, ops[0].Parent)
			assert.Nil(t, ops[0].Side)
		})
	}
}

func TestInferOperations_NoMatch(t *testing.T) {
	tests := []string{
		"The tree looks balanced to me.",
		"That value is already present.",
		"",
	}

	for _, reply := range tests {
		ops := InferOperations(&Turn{Reply: reply})
		assert.Empty(t, ops, "reply %q should infer nothing", reply)
	}
}

func TestInferOperations_DoesNotCaptureFramingWords(t *testing.T) {
	// "node with ..." without a label keyword must not yield "with"
	ops := InferOperations(&Turn{Reply: "Every node with children is internal."})

	assert.Empty(t, ops)
}
