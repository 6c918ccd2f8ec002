// ABOUTME: Tolerant parsing of generation output into typed artifacts.
// ABOUTME: Strips code fences and leading prose before the JSON payload; malformed output is a node error.
package nodes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object or array out of raw generation
// output. Models wrap payloads in code fences or preamble prose often
// enough that strict unmarshalling of the whole response is not viable.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON payload in output")
	}

	open := text[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON payload in output")
}

// decodeInto extracts and unmarshals the JSON payload from raw output.
func decodeInto(text string, v any) error {
	payload, err := extractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("parse generation output: %w", err)
	}
	return nil
}
