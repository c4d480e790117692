package assistant

import (
	"regexp"
	"strings"

	"treeviz-backend/domain/tree"
)

// Quoted labels are captured whole; an unquoted label is a single token,
// because reply prose keeps going after the label ("I added node B for you").
var (
	inferCreateRe = regexp.MustCompile(`(?i)(?:create|add|insert)\s+node\s+("[^"]+"|'[^']+'|\S+)`)
	inferLabelRe  = regexp.MustCompile(`(?i)node\s+(?:(?:with\s+label|with\s+name|label|named)\s*)?[:\-]?\s*("[^"]+"|'[^']+'|\S+)`)
)

// InferOperations recovers graph operations from a conversational reply when
// the model declared none. It matches the "create/add/insert node X" phrasing
// first and "node with label X" second, yielding at most one insert operation
// with the normalized value and no parent or side. No match is not an error.
func InferOperations(turn *Turn) []tree.Operation {
	text := turn.Reply

	match := inferCreateRe.FindStringSubmatch(text)
	if match == nil {
		match = inferLabelRe.FindStringSubmatch(text)
	}
	if match == nil {
		return nil
	}

	value := tree.NormalizeLabel(match[1])
	if value == "" {
		return nil
	}
	// Never treat framing words themselves as the label.
	switch strings.ToLower(value) {
	case "with", "node", "label":
		return nil
	}

	return []tree.Operation{
		{Action: "insert", Value: value},
	}
}
