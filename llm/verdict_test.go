// ABOUTME: Tests for scoring-verdict parsing from raw completion text.
package llm

import "testing"

func TestParseVerdict(t *testing.T) {
	verdict, err := parseVerdict(`{"scores": {"arc_coverage": 0.9, "progression": 0.7},
		"issues": ["conclusion is thin"], "guidance": "expand the close"}`)
	if err != nil {
		t.Fatalf("parseVerdict() error: %v", err)
	}

	if verdict.Scores["arc_coverage"] != 0.9 {
		t.Errorf("expected arc_coverage 0.9, got %v", verdict.Scores["arc_coverage"])
	}
	if len(verdict.Issues) != 1 || verdict.Guidance == "" {
		t.Errorf("expected issues and guidance, got %+v", verdict)
	}
}

func TestParseVerdictCodeFenceAndProse(t *testing.T) {
	raw := "Here is my assessment:\n```json\n{\"scores\": {\"voice\": 0.8}}\n```"
	verdict, err := parseVerdict(raw)
	if err != nil {
		t.Fatalf("parseVerdict() error: %v", err)
	}
	if verdict.Scores["voice"] != 0.8 {
		t.Errorf("expected voice 0.8, got %v", verdict.Scores["voice"])
	}
}

func TestParseVerdictRejectsEmptyOrMalformed(t *testing.T) {
	for _, raw := range []string{
		"no json at all",
		`{"scores": {}}`,
		`{"scores": "not a map"}`,
	} {
		if _, err := parseVerdict(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
