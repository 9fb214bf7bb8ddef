// Package research adapts hosted text models to the small advisory role
// the discovery pipeline gives them: answer a free-text question, return
// plain text. Output parsing is deliberately forgiving since models wrap
// JSON in prose, code fences, or half-valid syntax.
package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseNameList extracts a list of names from a model answer. It accepts
// a bare JSON array, an object with a single array field, or malformed
// JSON that the repair pass can fix.
func ParseNameList(input string) ([]string, error) {
	input = stripCodeFence(strings.TrimSpace(input))

	var names []string
	if err := unmarshalFlexible(input, &names); err == nil {
		return names, nil
	}

	var wrapped map[string][]string
	if err := unmarshalFlexible(input, &wrapped); err == nil {
		for _, list := range wrapped {
			return list, nil
		}
	}

	return nil, fmt.Errorf("no name list in model answer: %s", truncate(input, 200))
}

// unmarshalFlexible tries standard unmarshaling, then double-encoded
// strings, then a repair pass over malformed JSON.
func unmarshalFlexible(input string, out any) error {
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
