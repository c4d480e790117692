// Package assistant turns raw LLM output into structured turns: it extracts
// the JSON payload from free text, infers operations from conversational
// replies when the model omits them, and builds the fallback turns used
// when the model is unavailable or unparseable.
package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"treeviz-backend/domain/tree"
)

// Intent classifications declared by the model.
const (
	IntentCommand  = "command"
	IntentAnalysis = "analysis"
)

// Turn is the result of one assistant round, independent of how it is
// persisted. ApplyResults and TreeData are appended after mutation.
type Turn struct {
	Reply        string                     `json:"reply"`
	Intent       string                     `json:"intent"`
	Highlights   []string                   `json:"highlights"`
	Operations   []tree.Operation           `json:"operations"`
	Explanation  string                     `json:"explanation,omitempty"`
	ApplyResults []tree.ApplyResult         `json:"apply_results,omitempty"`
	TreeData     *tree.Graph                `json:"tree_data,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// Recognized top-level keys in a model response. Anything else lands in Extra.
var knownResponseKeys = map[string]struct{}{
	"reply":       {},
	"message":     {},
	"intent":      {},
	"highlights":  {},
	"operations":  {},
	"explanation": {},
}

// Extract parses the model's raw text into a Turn. The text is expected to
// be a single JSON object, but the model frequently wraps it in prose or
// Markdown code fences, so Extract strips a fence pair and then takes the
// substring from the first "{" to the last "}" before decoding. A text with
// no decodable object returns an error; callers substitute a fallback turn.
func Extract(raw string) (*Turn, error) {
	cleaned := stripFences(strings.TrimSpace(raw))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	turn := &Turn{
		Highlights: []string{},
		Operations: []tree.Operation{},
	}

	var reply, message string
	decodeString(fields["reply"], &reply)
	decodeString(fields["message"], &message)
	decodeString(fields["intent"], &turn.Intent)
	decodeString(fields["explanation"], &turn.Explanation)

	if raw, ok := fields["highlights"]; ok {
		var highlights []string
		if err := json.Unmarshal(raw, &highlights); err == nil && highlights != nil {
			turn.Highlights = highlights
		}
	}
	if raw, ok := fields["operations"]; ok {
		var operations []tree.Operation
		if err := json.Unmarshal(raw, &operations); err == nil && operations != nil {
			turn.Operations = operations
		}
	}

	// Prefer reply, then message, then the serialized object itself.
	switch {
	case reply != "":
		turn.Reply = reply
	case message != "":
		turn.Reply = message
	default:
		turn.Reply = cleaned[start : end+1]
	}

	if turn.Intent == "" {
		turn.Intent = IntentAnalysis
	}

	for key, value := range fields {
		if _, known := knownResponseKeys[key]; known {
			continue
		}
		if turn.Extra == nil {
			turn.Extra = make(map[string]json.RawMessage)
		}
		turn.Extra[key] = value
	}

	return turn, nil
}

// FallbackUnavailable builds the turn returned when the model cannot be
// reached at all.
func FallbackUnavailable(userMessage string) *Turn {
	return &Turn{
		Reply:       "(Assistant unavailable) I received: " + userMessage,
		Intent:      IntentAnalysis,
		Highlights:  []string{},
		Operations:  []tree.Operation{},
		Explanation: "Fallback due to LLM error.",
	}
}

// FallbackParseError builds the turn returned when the model responded but
// its output could not be parsed.
func FallbackParseError(userMessage string) *Turn {
	return &Turn{
		Reply:       "(Assistant parse error) I received: " + userMessage,
		Intent:      IntentAnalysis,
		Highlights:  []string{},
		Operations:  []tree.Operation{},
		Explanation: "Fallback due to parse error.",
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the opening fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func decodeString(raw json.RawMessage, dst *string) {
	if raw == nil {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
	}
}
