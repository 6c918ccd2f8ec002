// ABOUTME: YAML pipeline tuning: revision caps, rubric overrides, parallelism, retry preset.
// ABOUTME: Overrides are partial; anything unset falls back to the built-in defaults.
package loom

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML-loadable subset of pipeline tuning.
type FileConfig struct {
	MaxParallel int                             `yaml:"max_parallel"`
	Retry       string                          `yaml:"retry"` // none | standard | patient
	Caps        map[ArtifactKind]int            `yaml:"revision_caps"`
	Rubrics     map[ArtifactKind]RubricOverride `yaml:"rubrics"`
}

// RubricOverride adjusts one rubric without restating it wholesale.
// Criteria, when present, replaces the default criteria list entirely.
type RubricOverride struct {
	StructuralThreshold float64     `yaml:"structural_threshold"`
	Criteria            []Criterion `yaml:"criteria"`
}

// LoadFileConfig reads and validates a YAML tuning file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := fc.Validate(); err != nil {
		return fc, fmt.Errorf("config %s: %w", path, err)
	}
	return fc, nil
}

// Validate checks caps and rubric overrides for values the engine cannot
// honor.
func (fc FileConfig) Validate() error {
	for kind, limit := range fc.Caps {
		if kind != KindOutline && kind != KindArticle {
			return fmt.Errorf("revision cap for unknown artifact kind %q", kind)
		}
		if limit < 1 {
			return fmt.Errorf("revision cap for %s must be at least 1, got %d", kind, limit)
		}
	}
	for kind := range fc.Rubrics {
		if kind != KindOutline && kind != KindArticle {
			return fmt.Errorf("rubric override for unknown artifact kind %q", kind)
		}
		if err := fc.rubricFor(kind).Validate(); err != nil {
			return fmt.Errorf("rubric %s: %w", kind, err)
		}
	}
	switch fc.Retry {
	case "", "none", "standard", "patient":
	default:
		return fmt.Errorf("unknown retry policy %q", fc.Retry)
	}
	return nil
}

// rubricFor merges an override onto the default rubric for kind.
func (fc FileConfig) rubricFor(kind ArtifactKind) Rubric {
	base := DefaultRubrics()[kind]
	ov, ok := fc.Rubrics[kind]
	if !ok {
		return base
	}
	if ov.StructuralThreshold > 0 {
		base.StructuralThreshold = ov.StructuralThreshold
	}
	if len(ov.Criteria) > 0 {
		base.Criteria = ov.Criteria
	}
	return base
}

// ApplyTo folds the file config into a run config, leaving collaborators
// untouched.
func (fc FileConfig) ApplyTo(rc RunConfig) RunConfig {
	if fc.MaxParallel > 0 {
		rc.MaxParallel = fc.MaxParallel
	}
	if len(fc.Caps) > 0 {
		caps := DefaultCaps()
		for kind, c := range fc.Caps {
			caps[kind] = c
		}
		rc.Caps = caps
	}
	if len(fc.Rubrics) > 0 {
		rubrics := DefaultRubrics()
		for kind := range fc.Rubrics {
			rubrics[kind] = fc.rubricFor(kind)
		}
		rc.Rubrics = rubrics
	}
	return rc
}

// RetryPolicy resolves the named retry preset.
func (fc FileConfig) RetryPolicy() RetryPolicy {
	return RetryPolicyByName(fc.Retry)
}
