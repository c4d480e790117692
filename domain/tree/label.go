package tree

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Label keys searched in priority order when the raw value is a mapping.
var labelKeys = []string{"label", "name", "value", "node"}

// Bare words that never count as a usable label on their own.
var labelStopWords = map[string]struct{}{
	"with":  {},
	"node":  {},
	"label": {},
}

var (
	quotedSingleRe  = regexp.MustCompile(`'([^']*)'`)
	quotedDoubleRe  = regexp.MustCompile(`"([^"]*)"`)
	leadingPhraseRe = regexp.MustCompile(`(?i)^(?:(?:node|with|label|named|name)[\s:\-]*)+`)
	createNodeRe    = regexp.MustCompile(`(?i)(?:create|add|insert)\s+node\s+(.+)`)
	nodeLabelRe     = regexp.MustCompile(`(?i)node\s+(?:with\s+label|with\s+name|label|named)?\s*[:\-]?\s*(.+)`)
	wordRunRe       = regexp.MustCompile(`[A-Za-z0-9_\- ]+`)
)

// NormalizeLabel reduces an arbitrary LLM-supplied value to a plain node
// label. It searches mappings for conventional label keys, walks sequences
// for the first usable element, and strips conversational framing such as
// "node with label X" or quoting from scalar text. It is deterministic and
// never fails: when nothing usable can be recovered it returns the trimmed
// input text unchanged, and an empty string means "no usable label".
func NormalizeLabel(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case map[string]interface{}:
		return normalizeMapping(v)
	case []interface{}:
		return normalizeSequence(v)
	default:
		return normalizeScalar(stringify(raw))
	}
}

func normalizeMapping(m map[string]interface{}) string {
	for _, key := range labelKeys {
		if val, ok := m[key]; ok {
			return NormalizeLabel(val)
		}
	}
	// No conventional key: fall back to the first value. Keys are sorted
	// so the choice does not depend on map iteration order.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return NormalizeLabel(m[keys[0]])
}

func normalizeSequence(seq []interface{}) string {
	for _, elem := range seq {
		if normalized := NormalizeLabel(elem); normalized != "" {
			return normalized
		}
	}
	if len(seq) == 0 {
		return ""
	}
	return strings.TrimSpace(stringify(seq[0]))
}

func normalizeScalar(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	trimmed = stripCodeFences(trimmed)

	// A quoted substring wins outright: 'Root' and "Root" both mean Root.
	if m := quotedSingleRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := quotedDoubleRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Strip conversational lead-ins like "node with label " or "named: ".
	stripped := strings.TrimSpace(leadingPhraseRe.ReplaceAllString(trimmed, ""))
	if stripped != trimmed && stripped != "" && !isStopWord(stripped) {
		return trimLabelEdges(stripped)
	}

	// Pattern extraction for full phrasings embedded mid-sentence.
	if m := createNodeRe.FindStringSubmatch(trimmed); m != nil {
		if normalized := NormalizeLabel(m[1]); normalized != "" {
			return normalized
		}
	}
	if m := nodeLabelRe.FindStringSubmatch(trimmed); m != nil {
		if normalized := NormalizeLabel(m[1]); normalized != "" {
			return normalized
		}
	}

	if stripped != "" && !isStopWord(stripped) {
		return trimLabelEdges(stripped)
	}

	// Last resort: the trailing word run that is not itself a stop word.
	runs := wordRunRe.FindAllString(trimmed, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(runs[i])
		if candidate != "" && !isStopWord(candidate) {
			return candidate
		}
	}

	return trimmed
}

func stripCodeFences(text string) string {
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			// Drop a language tag on the opening fence line.
			if firstLine := strings.TrimSpace(text[:idx]); firstLine != "" && !strings.ContainsAny(firstLine, " \t") && len(firstLine) < 16 {
				text = text[idx+1:]
			}
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	return strings.Trim(text, "`")
}

func trimLabelEdges(text string) string {
	return strings.TrimSpace(strings.Trim(text, `'".,;:!? `))
}

func isStopWord(text string) bool {
	_, ok := labelStopWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing .0 so labels like 90 stay "90".
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
