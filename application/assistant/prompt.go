package assistant

import (
	"encoding/json"

	"treeviz-backend/domain/tree"
)

// SystemInstruction is the standing instruction sent with every model call.
// The model is asked for a single JSON object; the extractor tolerates
// deviations but a well-behaved model needs no recovery at all.
const SystemInstruction = `You are a tree diagram assistant. The user is editing a tree diagram and sends you messages about it, together with the current diagram state.

Classify each message as either a command (the user wants the diagram changed) or analysis (the user asks a question about the diagram or makes conversation).

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "reply": "<short human-facing answer>",
  "intent": "command" | "analysis",
  "highlights": ["<node id>", ...],
  "operations": [{"action": "insert", "value": "<label>", "parent": "<node id or label>", "side": "left" | "right"}, ...],
  "explanation": "<one sentence on why you chose these operations>"
}

Rules:
- For analysis messages, operations must be an empty array.
- For commands, emit one operation per requested change. The only supported action is "insert".
- "parent" and "side" are optional: omit them when the user did not specify a parent or side.
- "highlights" lists ids of existing nodes the user is asking about; leave it empty otherwise.
- Do not wrap the JSON in code fences or prose.`

// UserPayload is the JSON document sent alongside the system instruction.
type UserPayload struct {
	UserMessage      string     `json:"user_message"`
	CurrentTreeState tree.Graph `json:"current_tree_state"`
}

// BuildUserPayload serializes the user's message and the effective graph
// for the model call.
func BuildUserPayload(message string, graph tree.Graph) (string, error) {
	payload := UserPayload{
		UserMessage:      message,
		CurrentTreeState: graph,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
