package rubric

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type overrideFile struct {
	Rubrics []Rubric `yaml:"rubrics"`
}

// LoadOverrides reads a YAML document of the form
//
//	rubrics:
//	  - file_type: 教案
//	    criteria:
//	      - {name: 教学目标, max_score: 40}
//	      - {name: 教学过程, max_score: 60}
//
// and installs every rubric it lists. Criteria weights must sum to 100.
func (r *Registry) LoadOverrides(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rubric overrides: %w", err)
	}

	var doc overrideFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse rubric overrides: %w", err)
	}

	for idx, rubric := range doc.Rubrics {
		if weight := rubric.TotalWeight(); weight != 100 {
			return idx, fmt.Errorf("rubric %s: criteria weights sum to %.2f, want 100", rubric.FileType, weight)
		}
		if err := r.Override(rubric); err != nil {
			return idx, err
		}
	}
	return len(doc.Rubrics), nil
}

// Source is a persisted template that may carry its own rubric.
type Source struct {
	FileType   string
	TotalScore float64
	Criteria   []Criterion
	Vetoes     []string
}

// ApplyTemplates installs rubrics from persisted templates that declare
// criteria. Weights are rescaled onto the 100-point scale the registry
// stores. Templates whose criteria do not sum to their total are skipped.
// It returns the number of templates applied.
func (r *Registry) ApplyTemplates(sources []Source) int {
	applied := 0
	for _, source := range sources {
		if len(source.Criteria) == 0 || source.FileType == "" {
			continue
		}

		rubric := Rubric{FileType: source.FileType, SpecificVetoes: source.Vetoes}
		total := source.TotalScore
		if total <= 0 {
			total = Rubric{Criteria: source.Criteria}.TotalWeight()
		}
		if total <= 0 {
			continue
		}
		if weight := (Rubric{Criteria: source.Criteria}).TotalWeight(); math.Abs(weight-total) > 1e-6 {
			r.logger.Warn().
				Str("file_type", source.FileType).
				Float64("criteria_total", weight).
				Float64("total_score", total).
				Msg("template criteria do not sum to total score, keeping current rubric")
			continue
		}
		for _, criterion := range source.Criteria {
			criterion.MaxScore = criterion.MaxScore * 100 / total
			rubric.Criteria = append(rubric.Criteria, criterion)
		}

		if err := r.Override(rubric); err != nil {
			r.logger.Warn().Err(err).Str("file_type", source.FileType).Msg("skip template rubric")
			continue
		}
		applied++
	}
	return applied
}
