package rubric

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Canonical file-type tags.
const (
	LessonPlan    = "教案"
	Reflection    = "教学反思"
	Observation   = "教研/听课记录"
	GradeAnalysis = "成绩/学情分析"
	Courseware    = "课件"

	// DefaultFileType is used when a file-type is unknown.
	DefaultFileType = LessonPlan
)

var aliases = map[string]string{
	"lesson_plan":    LessonPlan,
	"lessonplan":     LessonPlan,
	"reflection":     Reflection,
	"observation":    Observation,
	"lecture_notes":  Observation,
	"grade_analysis": GradeAnalysis,
	"courseware":     Courseware,
	"slides":         Courseware,
	"教研记录":           Observation,
	"听课记录":           Observation,
	"成绩分析":           GradeAnalysis,
	"学情分析":           GradeAnalysis,
}

// Criterion is one weighted rubric line.
type Criterion struct {
	Name        string  `json:"name" yaml:"name"`
	MaxScore    float64 `json:"max_score" yaml:"max_score"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

// BonusRule lists the bonus items a rubric recognises. Zero caps mean the
// configured engine-wide caps apply.
type BonusRule struct {
	MaxItem  float64  `json:"max_item,omitempty" yaml:"max_item"`
	MaxTotal float64  `json:"max_total,omitempty" yaml:"max_total"`
	Items    []string `json:"items,omitempty" yaml:"items"`
}

// Rubric is the effective scoring scheme for one file-type. Criteria weights
// are expressed on a 100-point scale.
type Rubric struct {
	FileType       string      `json:"file_type" yaml:"file_type"`
	Description    string      `json:"description,omitempty" yaml:"description"`
	Criteria       []Criterion `json:"criteria" yaml:"criteria"`
	GeneralVetoes  []string    `json:"general_vetoes" yaml:"general_vetoes"`
	SpecificVetoes []string    `json:"specific_vetoes" yaml:"specific_vetoes"`
	Bonus          BonusRule   `json:"bonus" yaml:"bonus"`
}

// TotalWeight sums the criteria weights.
func (r Rubric) TotalWeight() float64 {
	var total float64
	for _, criterion := range r.Criteria {
		total += criterion.MaxScore
	}
	return total
}

// Vetoes returns general clauses followed by type-specific clauses.
func (r Rubric) Vetoes() []string {
	out := make([]string, 0, len(r.GeneralVetoes)+len(r.SpecificVetoes))
	out = append(out, r.GeneralVetoes...)
	return append(out, r.SpecificVetoes...)
}

func (r Rubric) clone() Rubric {
	out := r
	out.Criteria = append([]Criterion(nil), r.Criteria...)
	out.GeneralVetoes = append([]string(nil), r.GeneralVetoes...)
	out.SpecificVetoes = append([]string(nil), r.SpecificVetoes...)
	out.Bonus.Items = append([]string(nil), r.Bonus.Items...)
	return out
}

func (r Rubric) validate() error {
	if strings.TrimSpace(r.FileType) == "" {
		return fmt.Errorf("rubric file_type is required")
	}
	if len(r.Criteria) == 0 {
		return fmt.Errorf("rubric %s has no criteria", r.FileType)
	}
	for _, criterion := range r.Criteria {
		if strings.TrimSpace(criterion.Name) == "" || criterion.MaxScore <= 0 {
			return fmt.Errorf("rubric %s has an invalid criterion %q", r.FileType, criterion.Name)
		}
	}
	return nil
}

// Canonical maps a file-type tag or alias onto its canonical tag. The second
// result is false when the tag is not recognised.
func Canonical(fileType string) (string, bool) {
	tag := strings.TrimSpace(fileType)
	if _, ok := builtins[tag]; ok {
		return tag, true
	}
	if canonical, ok := aliases[strings.ToLower(tag)]; ok {
		return canonical, true
	}
	return tag, false
}

// Registry resolves file-types to rubrics. It is populated at boot and is
// read-only afterwards; Resolve is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	rubrics map[string]Rubric
	logger  zerolog.Logger
}

// NewRegistry returns a registry holding the built-in rubrics.
func NewRegistry(logger zerolog.Logger) *Registry {
	rubrics := make(map[string]Rubric, len(builtins))
	for tag, r := range builtins {
		rubrics[tag] = r.clone()
	}
	return &Registry{
		rubrics: rubrics,
		logger:  logger.With().Str("component", "rubric_registry").Logger(),
	}
}

// Resolve returns the rubric for fileType. Unknown types fall back to the
// lesson-plan rubric with a warning.
func (r *Registry) Resolve(fileType string) Rubric {
	tag, _ := Canonical(fileType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if found, ok := r.rubrics[tag]; ok {
		return found.clone()
	}
	r.logger.Warn().Str("file_type", fileType).Str("fallback", DefaultFileType).Msg("unknown file type, using default rubric")
	return r.rubrics[DefaultFileType].clone()
}

// FileTypes lists registered tags in sorted order.
func (r *Registry) FileTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.rubrics))
	for tag := range r.rubrics {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Override installs or replaces a rubric. Callers use it during boot only.
// Missing veto catalogues and bonus rules are inherited from the rubric
// being replaced.
func (r *Registry) Override(rubric Rubric) error {
	tag, _ := Canonical(rubric.FileType)
	rubric.FileType = tag
	if err := rubric.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rubrics[tag]; ok {
		if len(rubric.GeneralVetoes) == 0 {
			rubric.GeneralVetoes = existing.GeneralVetoes
		}
		if len(rubric.SpecificVetoes) == 0 {
			rubric.SpecificVetoes = existing.SpecificVetoes
		}
		if len(rubric.Bonus.Items) == 0 && rubric.Bonus.MaxItem == 0 && rubric.Bonus.MaxTotal == 0 {
			rubric.Bonus = existing.Bonus
		}
		if rubric.Description == "" {
			rubric.Description = existing.Description
		}
	} else if len(rubric.GeneralVetoes) == 0 {
		rubric.GeneralVetoes = generalVetoes
	}

	r.rubrics[tag] = rubric.clone()
	r.logger.Info().Str("file_type", tag).Int("criteria", len(rubric.Criteria)).Msg("rubric override installed")
	return nil
}
