package prompt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-eval-api/internal/rubric"
)

// Delimiters that fence the extracted document inside the prompt.
const (
	ContentStart = "=====材料内容开始====="
	ContentEnd   = "=====材料内容结束====="
)

// Grade bands as a percentage of the total score.
const (
	ExcellentPct = 0.90
	GoodPct      = 0.80
	PassPct      = 0.60
)

const outputSchema = `{
  "veto_check": {"triggered": false, "reason": ""},
  "score_details": [
    {"indicator": "指标名称", "score": 0, "max_score": 0, "reason": "评分理由"}
  ],
  "base_score": 0,
  "grade_suggestion": "优秀/良好/合格/不合格",
  "summary": "【总体评价】...【主要优点】...【存在问题】...【改进建议】..."
}`

// Input carries everything a scoring prompt is built from.
type Input struct {
	FileType   string
	Content    string
	TotalScore float64
	// Criteria, when non-empty, is rendered verbatim instead of the
	// registry's scaled weights.
	Criteria []rubric.Criterion
	// Vetoes, when non-empty, replaces the rubric's type-specific clauses.
	Vetoes []string
}

// Thresholds are the grade bands in absolute points.
type Thresholds struct {
	Excellent float64
	Good      float64
	Pass      float64
}

// ThresholdsFor converts the percentage bands into rounded points of total.
func ThresholdsFor(total float64) Thresholds {
	return Thresholds{
		Excellent: math.Round(total * ExcellentPct),
		Good:      math.Round(total * GoodPct),
		Pass:      math.Round(total * PassPct),
	}
}

// Builder renders scoring prompts.
type Builder struct {
	registry *rubric.Registry
}

// NewBuilder constructs a prompt builder backed by registry.
func NewBuilder(registry *rubric.Registry) *Builder {
	return &Builder{registry: registry}
}

// Criteria returns the criteria that Build would render for in.
func (b *Builder) Criteria(in Input) []rubric.Criterion {
	if len(in.Criteria) > 0 {
		return append([]rubric.Criterion(nil), in.Criteria...)
	}
	return scaleCriteria(b.registry.Resolve(in.FileType).Criteria, in.TotalScore)
}

func scaleCriteria(defaults []rubric.Criterion, total float64) []rubric.Criterion {
	scaled := make([]rubric.Criterion, 0, len(defaults))
	for _, criterion := range defaults {
		criterion.MaxScore = math.Round(criterion.MaxScore * total / 100)
		scaled = append(scaled, criterion)
	}
	return scaled
}

// Build renders the single user message sent to the model.
func (b *Builder) Build(in Input) string {
	rb := b.registry.Resolve(in.FileType)
	fileType := rb.FileType
	if tag, ok := rubric.Canonical(in.FileType); ok || len(in.Criteria) > 0 {
		fileType = tag
	}

	specific := rb.SpecificVetoes
	if len(in.Vetoes) > 0 {
		specific = in.Vetoes
	}
	total := formatScore(in.TotalScore)

	var sb strings.Builder

	fmt.Fprintf(&sb, "你是一名资深的教学质量评估专家，负责对教师提交的「%s」进行评分。", fileType)
	if rb.Description != "" && fileType == rb.FileType {
		fmt.Fprintf(&sb, "该类材料为：%s。", rb.Description)
	}
	sb.WriteString("\n\n")

	sb.WriteString("## 评分规则\n")
	sb.WriteString("1. 首先逐条检查一票否决项。只要触发任意一项，veto_check.triggered 置为 true，写明触发原因，base_score 记为 0，等级为不合格。\n")
	fmt.Fprintf(&sb, "2. 未触发否决项时，按评分指标逐项打分，每项得分不得超过该项满分，base_score 为各项得分之和，且不超过总分 %s 分。\n", total)
	sb.WriteString("3. 每项评分理由需引用材料中的具体内容，避免空泛评价。\n\n")

	sb.WriteString("## 一票否决项\n")
	sb.WriteString("### 通用否决项\n")
	writeNumbered(&sb, rb.GeneralVetoes)
	sb.WriteString("### 专项否决项\n")
	writeNumbered(&sb, specific)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## 评分指标（总分 %s 分）\n", total)
	for idx, criterion := range b.Criteria(in) {
		fmt.Fprintf(&sb, "%d. %s（满分 %s 分）", idx+1, criterion.Name, formatScore(criterion.MaxScore))
		if criterion.Description != "" {
			fmt.Fprintf(&sb, "：%s", criterion.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	bands := ThresholdsFor(in.TotalScore)
	sb.WriteString("## 等级标准\n")
	fmt.Fprintf(&sb, "- 优秀：%s 分及以上\n", formatScore(bands.Excellent))
	fmt.Fprintf(&sb, "- 良好：%s 分至 %s 分以下\n", formatScore(bands.Good), formatScore(bands.Excellent))
	fmt.Fprintf(&sb, "- 合格：%s 分至 %s 分以下\n", formatScore(bands.Pass), formatScore(bands.Good))
	fmt.Fprintf(&sb, "- 不合格：%s 分以下\n\n", formatScore(bands.Pass))

	sb.WriteString("## 待评材料\n")
	sb.WriteString(ContentStart)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(in.Content))
	sb.WriteString("\n")
	sb.WriteString(ContentEnd)
	sb.WriteString("\n\n")

	sb.WriteString("## 输出格式\n")
	sb.WriteString("请严格只输出如下结构的 JSON 对象，字段不得增减：\n")
	sb.WriteString(outputSchema)
	sb.WriteString("\n")

	return sb.String()
}

func writeNumbered(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		sb.WriteString("（无）\n")
		return
	}
	for idx, item := range items {
		fmt.Fprintf(sb, "%d. %s\n", idx+1, item)
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
