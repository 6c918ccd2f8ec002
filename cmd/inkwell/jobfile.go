// ABOUTME: Parses YAML job files listing the source documents for a pipeline run.
// ABOUTME: Documents carry their body inline or reference a file resolved relative to the job file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/inkwell/loom"
)

// jobFile is the YAML shape of a run request: a list of source documents.
type jobFile struct {
	Documents []jobDocument `yaml:"documents"`
}

// jobDocument is one source document entry. Exactly one of body or file
// must be set; file paths are resolved relative to the job file.
type jobDocument struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
	File  string `yaml:"file"`
}

// loadJobFile reads a YAML job file and returns the source documents.
func loadJobFile(path string) ([]loom.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var job jobFile
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if len(job.Documents) == 0 {
		return nil, fmt.Errorf("job file %s lists no documents", path)
	}

	baseDir := filepath.Dir(path)
	docs := make([]loom.Document, 0, len(job.Documents))
	for i, jd := range job.Documents {
		doc, err := resolveDocument(jd, i, baseDir)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// resolveDocument validates one job document entry and loads its body.
func resolveDocument(jd jobDocument, index int, baseDir string) (loom.Document, error) {
	if jd.Body != "" && jd.File != "" {
		return loom.Document{}, fmt.Errorf("document %d: body and file are mutually exclusive", index)
	}

	body := jd.Body
	if jd.File != "" {
		p := jd.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return loom.Document{}, fmt.Errorf("document %d: %w", index, err)
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		return loom.Document{}, fmt.Errorf("document %d: empty body", index)
	}

	id := jd.ID
	if id == "" {
		id = fmt.Sprintf("doc-%d", index+1)
	}
	title := jd.Title
	if title == "" && jd.File != "" {
		title = filepath.Base(jd.File)
	}

	return loom.Document{ID: id, Title: title, Body: body}, nil
}
