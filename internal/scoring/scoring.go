package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// Grade values.
const (
	GradeExcellent = "Excellent"
	GradeGood      = "Good"
	GradePass      = "Pass"
	GradeFail      = "Fail"
)

const epsilon = 1e-9

// GradeFor maps a percentage onto a grade. Lower bounds are inclusive.
func GradeFor(pct float64) string {
	switch {
	case pct+epsilon >= 90:
		return GradeExcellent
	case pct+epsilon >= 80:
		return GradeGood
	case pct+epsilon >= 60:
		return GradePass
	default:
		return GradeFail
	}
}

// GradeLabel returns the Chinese label for a grade.
func GradeLabel(grade string) string {
	switch grade {
	case GradeExcellent:
		return "优秀"
	case GradeGood:
		return "良好"
	case GradePass:
		return "合格"
	default:
		return "不合格"
	}
}

// BonusItem is a caller-supplied additive adjustment.
type BonusItem struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// BonusPolicy caps individual and aggregate bonus.
type BonusPolicy struct {
	MaxItem  float64
	MaxTotal float64
}

// DefaultBonusPolicy returns the 5 per item / 10 aggregate caps.
func DefaultBonusPolicy() BonusPolicy {
	return BonusPolicy{MaxItem: 5, MaxTotal: 10}
}

// Cap returns the aggregate cap for a template total: the lesser of MaxTotal
// and a tenth of the total.
func (p BonusPolicy) Cap(totalScore float64) float64 {
	return math.Max(0, math.Min(p.MaxTotal, 0.1*totalScore))
}

// Apply clamps every item into [0, MaxItem] and scales the items down
// proportionally when their sum exceeds the aggregate cap. It returns the
// effective items and their sum.
func (p BonusPolicy) Apply(items []BonusItem, totalScore float64) ([]BonusItem, float64) {
	effective := make([]BonusItem, 0, len(items))
	var sum float64
	for _, item := range items {
		score := math.Max(0, math.Min(item.Score, p.MaxItem))
		effective = append(effective, BonusItem{Name: strings.TrimSpace(item.Name), Score: score})
		sum += score
	}

	limit := p.Cap(totalScore)
	if sum > limit {
		ratio := 0.0
		if sum > 0 {
			ratio = limit / sum
		}
		sum = 0
		for idx := range effective {
			effective[idx].Score *= ratio
			sum += effective[idx].Score
		}
		sum = math.Min(sum, limit)
	}
	return effective, sum
}

// Outcome is the evaluator result: either a VetoOutcome or a ScoredOutcome.
type Outcome interface {
	Grade() string
	Final() float64
	outcome()
}

// Common fields shared by both outcomes.
type Common struct {
	TotalScore   float64
	ScoreDetails []ai.IndicatorScore
	Summary      string
	ScoredAt     time.Time
}

// VetoOutcome is produced when a veto item was triggered. Its scores are
// always zero and its grade is always Fail.
type VetoOutcome struct {
	Common
	Reason string
}

func (VetoOutcome) outcome() {}

// Grade implements Outcome.
func (VetoOutcome) Grade() string { return GradeFail }

// Final implements Outcome.
func (VetoOutcome) Final() float64 { return 0 }

// ScoredOutcome is produced when no veto applies.
type ScoredOutcome struct {
	Common
	Base         float64
	Bonus        float64
	BonusDetails []BonusItem
	FinalScore   float64
	GradeValue   string
}

func (ScoredOutcome) outcome() {}

// Grade implements Outcome.
func (o ScoredOutcome) Grade() string { return o.GradeValue }

// Final implements Outcome.
func (o ScoredOutcome) Final() float64 { return o.FinalScore }

// Evaluator turns validated model output into an Outcome.
type Evaluator struct {
	policy BonusPolicy
	now    func() time.Time
}

// NewEvaluator constructs an evaluator with the given bonus policy.
func NewEvaluator(policy BonusPolicy) *Evaluator {
	return &Evaluator{policy: policy, now: time.Now}
}

// WithPolicy returns a copy of the evaluator using policy.
func (e *Evaluator) WithPolicy(policy BonusPolicy) *Evaluator {
	clone := *e
	clone.policy = policy
	return &clone
}

// Evaluate applies veto, base clamping, bonus and grade mapping. ScoredAt
// carries microsecond precision, the resolution of a timestamptz column.
func (e *Evaluator) Evaluate(resp ai.ScoringResponse, bonus []BonusItem, totalScore float64) Outcome {
	common := Common{
		TotalScore:   totalScore,
		ScoreDetails: append([]ai.IndicatorScore(nil), resp.ScoreDetails...),
		Summary:      resp.Summary,
		ScoredAt:     e.now().UTC().Truncate(time.Microsecond),
	}

	if resp.VetoCheck.Triggered {
		return VetoOutcome{Common: common, Reason: resp.VetoCheck.Reason}
	}

	base := clamp(resp.BaseScore, 0, totalScore)
	items, bonusSum := e.policy.Apply(bonus, totalScore)
	final := clamp(base+bonusSum, 0, totalScore)

	pct := 0.0
	if totalScore > 0 {
		pct = 100 * final / totalScore
	}

	return ScoredOutcome{
		Common:       common,
		Base:         base,
		Bonus:        bonusSum,
		BonusDetails: items,
		FinalScore:   final,
		GradeValue:   GradeFor(pct),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
