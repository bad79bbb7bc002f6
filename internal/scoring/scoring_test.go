package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

func response(base float64) ai.ScoringResponse {
	return ai.ScoringResponse{
		BaseScore:       base,
		GradeSuggestion: "Good",
		Summary:         "【总体评价】结构完整",
		ScoreDetails: []ai.IndicatorScore{
			{Indicator: "教学目标", Score: 18, MaxScore: 20, Reason: "明确"},
		},
	}
}

func newTestEvaluator() *Evaluator {
	e := NewEvaluator(DefaultBonusPolicy())
	e.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	return e
}

func TestEvaluateHappyPath(t *testing.T) {
	outcome := newTestEvaluator().Evaluate(response(85), nil, 100)

	scored, ok := outcome.(ScoredOutcome)
	require.True(t, ok)
	require.Equal(t, 85.0, scored.Base)
	require.Equal(t, 0.0, scored.Bonus)
	require.Equal(t, 85.0, scored.FinalScore)
	require.Equal(t, GradeGood, scored.Grade())
	require.Empty(t, scored.BonusDetails)
	require.Len(t, scored.ScoreDetails, 1)
	require.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), scored.ScoredAt)
}

func TestEvaluateTruncatesScoredAtToMicroseconds(t *testing.T) {
	e := NewEvaluator(DefaultBonusPolicy())
	e.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 123456789, time.UTC) }

	outcome := e.Evaluate(response(70), nil, 100)

	scored, ok := outcome.(ScoredOutcome)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 123456000, time.UTC), scored.ScoredAt)
}

func TestEvaluateVetoDominates(t *testing.T) {
	resp := response(60)
	resp.VetoCheck = ai.VetoCheck{Triggered: true, Reason: "未提交核心文件"}

	outcome := newTestEvaluator().Evaluate(resp, []BonusItem{{Name: "a", Score: 5}}, 100)

	veto, ok := outcome.(VetoOutcome)
	require.True(t, ok)
	require.Equal(t, "未提交核心文件", veto.Reason)
	require.Equal(t, GradeFail, veto.Grade())
	require.Equal(t, 0.0, veto.Final())
	require.Equal(t, resp.Summary, veto.Summary)
	require.Equal(t, resp.ScoreDetails, veto.ScoreDetails)
}

func TestEvaluateBonusSaturatesAggregateCap(t *testing.T) {
	outcome := newTestEvaluator().Evaluate(response(90), []BonusItem{{Name: "a", Score: 7}, {Name: "b", Score: 8}}, 100)

	scored := outcome.(ScoredOutcome)
	require.Equal(t, []BonusItem{{Name: "a", Score: 5}, {Name: "b", Score: 5}}, scored.BonusDetails)
	require.Equal(t, 10.0, scored.Bonus)
	require.Equal(t, 100.0, scored.FinalScore)
	require.Equal(t, GradeExcellent, scored.Grade())
}

func TestEvaluateBonusCannotPassTotal(t *testing.T) {
	scored := newTestEvaluator().Evaluate(response(95), []BonusItem{{Score: 8}}, 100).(ScoredOutcome)
	require.Equal(t, 5.0, scored.Bonus)
	require.Equal(t, 100.0, scored.FinalScore)
	require.Equal(t, GradeExcellent, scored.Grade())
}

func TestEvaluateCustomTotal(t *testing.T) {
	scored := newTestEvaluator().Evaluate(response(40), nil, 50).(ScoredOutcome)
	require.Equal(t, 40.0, scored.FinalScore)
	require.Equal(t, GradeGood, scored.Grade())
}

func TestEvaluateClampsBase(t *testing.T) {
	scored := newTestEvaluator().Evaluate(response(130), nil, 100).(ScoredOutcome)
	require.Equal(t, 100.0, scored.Base)

	scored = newTestEvaluator().Evaluate(response(-4), nil, 100).(ScoredOutcome)
	require.Equal(t, 0.0, scored.Base)
	require.Equal(t, GradeFail, scored.Grade())
}

func TestBonusPolicyScalesProportionally(t *testing.T) {
	policy := DefaultBonusPolicy()

	// total 50 caps the aggregate at 5
	items, sum := policy.Apply([]BonusItem{{Name: "a", Score: 4}, {Name: "b", Score: 2}, {Name: "c", Score: -1}}, 50)
	require.InDelta(t, 5.0, sum, 1e-9)
	require.InDelta(t, 4.0*5/6, items[0].Score, 1e-9)
	require.InDelta(t, 2.0*5/6, items[1].Score, 1e-9)
	require.Equal(t, 0.0, items[2].Score)
}

func TestBonusPolicyCap(t *testing.T) {
	policy := BonusPolicy{MaxItem: 5, MaxTotal: 10}
	require.Equal(t, 10.0, policy.Cap(100))
	require.Equal(t, 10.0, policy.Cap(200))
	require.Equal(t, 3.0, policy.Cap(30))
}

func TestGradeForBoundaries(t *testing.T) {
	cases := map[float64]string{
		100:    GradeExcellent,
		90:     GradeExcellent,
		89.999: GradeGood,
		80:     GradeGood,
		79.99:  GradePass,
		60:     GradePass,
		59.99:  GradeFail,
		0:      GradeFail,
	}
	for pct, want := range cases {
		require.Equal(t, want, GradeFor(pct), pct)
	}
	require.Equal(t, GradeExcellent, GradeFor(100*27.0/30))
}

func TestEvaluateInvariantsHoldForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	evaluator := newTestEvaluator()

	for i := 0; i < 500; i++ {
		total := float64(10 + rng.Intn(191))
		resp := response(rng.Float64()*total*1.4 - total*0.2)
		resp.VetoCheck.Triggered = rng.Intn(5) == 0
		if resp.VetoCheck.Triggered {
			resp.VetoCheck.Reason = "抄袭"
		}

		bonus := make([]BonusItem, rng.Intn(4))
		for j := range bonus {
			bonus[j] = BonusItem{Name: "item", Score: rng.Float64() * 12}
		}

		outcome := evaluator.Evaluate(resp, bonus, total)
		require.GreaterOrEqual(t, outcome.Final(), 0.0)
		require.LessOrEqual(t, outcome.Final(), total)
		require.Equal(t, GradeFor(100*outcome.Final()/total), outcome.Grade())

		switch o := outcome.(type) {
		case VetoOutcome:
			require.True(t, resp.VetoCheck.Triggered)
			require.Equal(t, GradeFail, o.Grade())
		case ScoredOutcome:
			require.False(t, resp.VetoCheck.Triggered)
			var sum float64
			for _, item := range o.BonusDetails {
				require.LessOrEqual(t, item.Score, 5.0+1e-9)
				sum += item.Score
			}
			require.LessOrEqual(t, o.Bonus, DefaultBonusPolicy().Cap(total)+1e-9)
			require.InDelta(t, sum, o.Bonus, 1e-6)
		}
	}
}

func TestGradeLabel(t *testing.T) {
	require.Equal(t, "优秀", GradeLabel(GradeExcellent))
	require.Equal(t, "不合格", GradeLabel(GradeFail))
}
