package prompt

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/rubric"
)

func newTestBuilder() *Builder {
	return NewBuilder(rubric.NewRegistry(zerolog.Nop()))
}

func TestBuildSectionsInOrder(t *testing.T) {
	text := newTestBuilder().Build(Input{FileType: rubric.LessonPlan, Content: "  教学目标：掌握勾股定理  ", TotalScore: 100})

	markers := []string{
		"「教案」",
		"## 评分规则",
		"## 一票否决项",
		"### 通用否决项",
		"### 专项否决项",
		"## 评分指标（总分 100 分）",
		"## 等级标准",
		ContentStart,
		"教学目标：掌握勾股定理",
		ContentEnd,
		"## 输出格式",
		`"veto_check"`,
		`"summary"`,
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(text, marker)
		require.Greater(t, idx, last, marker)
		last = idx
	}
	require.Contains(t, text, ContentStart+"\n教学目标：掌握勾股定理\n"+ContentEnd)
}

func TestBuildScalesDefaultWeights(t *testing.T) {
	text := newTestBuilder().Build(Input{FileType: rubric.LessonPlan, Content: "x", TotalScore: 50})
	require.Contains(t, text, "1. 教学目标（满分 10 分）")
	require.Contains(t, text, "3. 教学过程（满分 15 分）")
	require.Contains(t, text, "4. 教学方法（满分 8 分）")
}

func TestCriteriaMatchesRenderedLines(t *testing.T) {
	builder := newTestBuilder()

	scaled := builder.Criteria(Input{FileType: rubric.LessonPlan, TotalScore: 50})
	require.Len(t, scaled, 5)
	require.Equal(t, 10.0, scaled[0].MaxScore)
	require.Equal(t, 15.0, scaled[2].MaxScore)

	explicit := []rubric.Criterion{{Name: "设计", MaxScore: 30}}
	got := builder.Criteria(Input{FileType: rubric.LessonPlan, TotalScore: 30, Criteria: explicit})
	require.Equal(t, explicit, got)
	got[0].Name = "changed"
	require.Equal(t, "设计", explicit[0].Name)
}

func TestBuildRendersExplicitCriteriaVerbatim(t *testing.T) {
	text := newTestBuilder().Build(Input{
		FileType:   rubric.LessonPlan,
		Content:    "x",
		TotalScore: 50,
		Criteria:   []rubric.Criterion{{Name: "设计", MaxScore: 25}, {Name: "实施", MaxScore: 24.5}},
	})
	require.Contains(t, text, "1. 设计（满分 25 分）\n2. 实施（满分 24.5 分）\n")
	require.NotContains(t, text, "教学目标（满分")
	require.Contains(t, text, "缺少教学目标或教学过程等基本环节", "registry vetoes still apply")
}

func TestBuildVetoOverrideReplacesSpecificClauses(t *testing.T) {
	text := newTestBuilder().Build(Input{FileType: rubric.Courseware, Content: "x", TotalScore: 100, Vetoes: []string{"课件页数少于5页"}})
	require.Contains(t, text, "### 专项否决项\n1. 课件页数少于5页\n")
	require.NotContains(t, text, "课件存在明显知识性错误")
	require.Contains(t, text, "抄袭")
}

func TestBuildGradeBandsInPoints(t *testing.T) {
	text := newTestBuilder().Build(Input{FileType: rubric.Reflection, Content: "x", TotalScore: 50})
	require.Contains(t, text, "- 优秀：45 分及以上")
	require.Contains(t, text, "- 良好：40 分至 45 分以下")
	require.Contains(t, text, "- 合格：30 分至 40 分以下")
	require.Contains(t, text, "- 不合格：30 分以下")
}

func TestBuildUnknownTypeUsesDefaultRubric(t *testing.T) {
	text := newTestBuilder().Build(Input{FileType: "随笔", Content: "x", TotalScore: 100})
	require.Contains(t, text, "「教案」")
	require.Contains(t, text, "教学目标（满分 20 分）")
}

func TestThresholdsForRounds(t *testing.T) {
	require.Equal(t, Thresholds{Excellent: 68, Good: 60, Pass: 45}, ThresholdsFor(75))
}
