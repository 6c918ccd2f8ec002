// ABOUTME: Tests for YAML job file parsing and document resolution.
// ABOUTME: Covers inline bodies, file references, defaults, and validation failures.
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeJobFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJobFile_InlineDocuments(t *testing.T) {
	path := writeJobFile(t, t.TempDir(), `
documents:
  - id: notes-1
    title: Field notes
    body: Observation logs from the survey.
  - body: Second source without metadata.
`)

	docs, err := loadJobFile(path)
	if err != nil {
		t.Fatalf("loadJobFile: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "notes-1" || docs[0].Title != "Field notes" {
		t.Errorf("first doc = %+v", docs[0])
	}
	if docs[1].ID != "doc-2" {
		t.Errorf("missing ID should default to doc-2, got %q", docs[1].ID)
	}
}

func TestLoadJobFile_FileReferenceRelativeToJob(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "source.md"), []byte("# Raw interview notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeJobFile(t, dir, `
documents:
  - id: interview
    file: source.md
`)

	docs, err := loadJobFile(path)
	if err != nil {
		t.Fatalf("loadJobFile: %v", err)
	}
	if docs[0].Body != "# Raw interview notes" {
		t.Errorf("body = %q", docs[0].Body)
	}
	if docs[0].Title != "source.md" {
		t.Errorf("title should default to the file name, got %q", docs[0].Title)
	}
}

func TestLoadJobFile_Failures(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no documents", "documents: []\n", "no documents"},
		{"empty body", "documents:\n  - id: a\n    body: \"  \"\n", "empty body"},
		{"body and file", "documents:\n  - body: x\n    file: y.md\n", "mutually exclusive"},
		{"missing file", "documents:\n  - file: absent.md\n", "absent.md"},
		{"bad yaml", "documents: [\n", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeJobFile(t, dir, tc.content)
			_, err := loadJobFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != "" && !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadJobFile_MissingJobFile(t *testing.T) {
	if _, err := loadJobFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing job file")
	}
}
