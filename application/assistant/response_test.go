package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedJSON(t *testing.T) {
	// Arrange
	raw := "```json\n{\"reply\":\"hi\"}\n```"

	// Act
	turn, err := Extract(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hi", turn.Reply)
	assert.Equal(t, IntentAnalysis, turn.Intent)
	assert.Empty(t, turn.Operations)
}

func TestExtract_JSONWrappedInProse(t *testing.T) {
	raw := `Sure, here is my answer: {"reply":"done","intent":"command","operations":[{"action":"insert","value":"B","parent":"A","side":"left"}]} hope that helps!`

	turn, err := Extract(raw)

	require.NoError(t, err)
	assert.Equal(t, "done", turn.Reply)
	assert.Equal(t, IntentCommand, turn.Intent)
	require.Len(t, turn.Operations, 1)
	assert.Equal(t, "insert", turn.Operations[0].Action)
	assert.Equal(t, "B", turn.Operations[0].Value)
	assert.Equal(t, "left", turn.Operations[0].Side)
}

func TestExtract_MessageKeyFallsBackToReply(t *testing.T) {
	turn, err := Extract(`{"message":"from message key"}`)

	require.NoError(t, err)
	assert.Equal(t, "from message key", turn.Reply)
}

func TestExtract_NoReplySerializesObject(t *testing.T) {
	turn, err := Extract(`{"intent":"analysis","note":"x"}`)

	require.NoError(t, err)
	assert.Contains(t, turn.Reply, `"note"`)
}

func TestExtract_PreservesUnknownKeys(t *testing.T) {
	turn, err := Extract(`{"reply":"ok","confidence":0.9}`)

	require.NoError(t, err)
	require.Contains(t, turn.Extra, "confidence")
}

func TestExtract_NotJSONFails(t *testing.T) {
	_, err := Extract("not json at all")

	assert.Error(t, err)
}

func TestExtract_MalformedObjectFails(t *testing.T) {
	_, err := Extract(`{"reply": unterminated`)

	assert.Error(t, err)
}

func TestFallbackTurns(t *testing.T) {
	// Arrange / Act
	unavailable := FallbackUnavailable("hello")
	parseErr := FallbackParseError("hello")

	// Assert
	assert.Equal(t, "(Assistant unavailable) I received: hello", unavailable.Reply)
	assert.Equal(t, "Fallback due to LLM error.", unavailable.Explanation)
	assert.Equal(t, IntentAnalysis, unavailable.Intent)
	assert.Empty(t, unavailable.Operations)

	assert.Equal(t, "(Assistant parse error) I received: hello", parseErr.Reply)
	assert.Equal(t, "Fallback due to parse error.", parseErr.Explanation)
	assert.Equal(t, IntentAnalysis, parseErr.Intent)
	assert.Empty(t, parseErr.Operations)
}
