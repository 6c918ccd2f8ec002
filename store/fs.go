// ABOUTME: Filesystem-backed run store: one directory per run with meta.json, run.json, and events.jsonl.
// ABOUTME: The snapshot file is the source of truth; meta.json exists so listing never loads full states.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/2389-research/inkwell/loom"
)

// Compile-time check that FSStore implements loom.RunStore.
var _ loom.RunStore = (*FSStore)(nil)

// FSStore is a filesystem-backed run store. Each run lives in a
// subdirectory of baseDir named by run ID.
type FSStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSStore creates a filesystem run store rooted at baseDir, creating the
// directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Create persists a new run. A run with the same ID must not exist.
func (s *FSStore) Create(run *loom.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.baseDir, run.ID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run %q already exists", run.ID)
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	if err := s.writeSnapshot(runDir, run); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "events.jsonl"), []byte(""), 0644); err != nil {
		return fmt.Errorf("create events log: %w", err)
	}
	return nil
}

// Get loads a run by ID, replaying the event log into the record.
func (s *FSStore) Get(id string) (*loom.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runDir := filepath.Join(s.baseDir, id)
	data, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", loom.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var run loom.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse snapshot for %s: %w", id, err)
	}

	events, err := readEvents(filepath.Join(runDir, "events.jsonl"))
	if err != nil {
		return nil, err
	}
	run.Events = events
	return &run, nil
}

// Update rewrites the snapshot and metadata for an existing run.
func (s *FSStore) Update(run *loom.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.baseDir, run.ID)
	if _, err := os.Stat(runDir); err != nil {
		return fmt.Errorf("%w: %s", loom.ErrRunNotFound, run.ID)
	}
	return s.writeSnapshot(runDir, run)
}

// List returns metadata for every stored run, newest first.
func (s *FSStore) List() ([]loom.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	metas := make([]loom.Meta, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var meta loom.Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// AppendEvent appends one event to the run's log.
func (s *FSStore) AppendEvent(id string, event loom.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, id, "events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open events log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// writeSnapshot writes run.json (without the event log) and meta.json.
func (s *FSStore) writeSnapshot(runDir string, run *loom.Run) error {
	snapshot := *run
	snapshot.Events = nil

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	meta, err := json.MarshalIndent(run.Meta(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "meta.json"), meta, 0644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// readEvents replays an events.jsonl file.
func readEvents(path string) ([]loom.Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return []loom.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events log: %w", err)
	}
	defer f.Close()

	var events []loom.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev loom.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("parse event line: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events log: %w", err)
	}
	return events, nil
}
