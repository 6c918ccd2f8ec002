// ABOUTME: Parses scoring verdicts out of raw completion text.
// ABOUTME: Tolerates code fences and preamble prose around the JSON object.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2389-research/inkwell/loom"
)

const scoreInstructions = `You are scoring an article-pipeline artifact against a rubric.
Score every listed criterion from 0.0 (fails entirely) to 1.0 (fully satisfies).
List concrete issues you found and give one actionable piece of revision guidance.

Respond with a JSON object:
{"scores": {"criterion_name": 0.0}, "issues": ["..."], "guidance": "..."}`

// parseVerdict extracts the JSON verdict from completion text.
func parseVerdict(text string) (*loom.ScoreResult, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no verdict object in scorer output")
	}

	var verdict struct {
		Scores   map[string]float64 `json:"scores"`
		Issues   []string           `json:"issues"`
		Guidance string             `json:"guidance"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if len(verdict.Scores) == 0 {
		return nil, fmt.Errorf("verdict carries no scores")
	}

	return &loom.ScoreResult{
		Scores:   verdict.Scores,
		Issues:   verdict.Issues,
		Guidance: verdict.Guidance,
	}, nil
}
