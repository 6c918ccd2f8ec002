// ABOUTME: Tests for CLI decision-flag parsing, store selection, and data dir resolution.
// ABOUTME: Exercises the helpers behind the one-shot resume and rollback modes.
package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecisionFromFlags_Approve(t *testing.T) {
	raw, err := decisionFromFlags(config{approve: true})
	if err != nil {
		t.Fatalf("decisionFromFlags: %v", err)
	}
	var d map[string]any
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	if d["approved"] != true {
		t.Errorf("approved = %v, want true", d["approved"])
	}
	if d["decided_by"] != "cli" {
		t.Errorf("decided_by = %v", d["decided_by"])
	}
}

func TestDecisionFromFlags_RejectCarriesFeedback(t *testing.T) {
	raw, err := decisionFromFlags(config{reject: "needs a stronger close"})
	if err != nil {
		t.Fatalf("decisionFromFlags: %v", err)
	}
	var d map[string]any
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	if d["approved"] != false {
		t.Errorf("approved = %v, want false", d["approved"])
	}
	if d["feedback"] != "needs a stronger close" {
		t.Errorf("feedback = %v", d["feedback"])
	}
}

func TestDecisionFromFlags_ArcsSplitAndTrimmed(t *testing.T) {
	raw, err := decisionFromFlags(config{arcs: "arc-1, arc-2 ,"})
	if err != nil {
		t.Fatalf("decisionFromFlags: %v", err)
	}
	var d struct {
		SelectedArcs []string `json:"selected_arcs"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	if len(d.SelectedArcs) != 2 || d.SelectedArcs[0] != "arc-1" || d.SelectedArcs[1] != "arc-2" {
		t.Errorf("selected_arcs = %v", d.SelectedArcs)
	}
}

func TestDecisionFromFlags_RejectsAmbiguousFlags(t *testing.T) {
	cases := []config{
		{},
		{approve: true, reject: "x"},
		{approve: true, arcs: "a"},
		{reject: "x", arcs: "a"},
	}
	for _, cfg := range cases {
		if _, err := decisionFromFlags(cfg); err == nil {
			t.Errorf("config %+v: expected error", cfg)
		}
	}
}

func TestDecisionFromFlags_EmptyArcListFails(t *testing.T) {
	if _, err := decisionFromFlags(config{arcs: " , "}); err == nil {
		t.Error("expected error for arc list with no IDs")
	}
}

func TestBuildStore_UnknownBackend(t *testing.T) {
	_, err := buildStore(config{storeKind: "redis", dataDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Errorf("err = %v, want unknown backend error", err)
	}
}

func TestBuildStore_FSBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := buildStore(config{storeKind: "fs", dataDir: dir})
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	if s == nil {
		t.Fatal("store is nil")
	}
	if metas, err := s.List(); err != nil || len(metas) != 0 {
		t.Errorf("fresh store List = %v, %v", metas, err)
	}
}

func TestResolveDataDir_OverrideWins(t *testing.T) {
	got, err := resolveDataDir("/tmp/custom")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/custom" {
		t.Errorf("got %q", got)
	}
}

func TestResolveDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	got, err := resolveDataDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/tmp/xdg", "inkwell") {
		t.Errorf("got %q", got)
	}
}
