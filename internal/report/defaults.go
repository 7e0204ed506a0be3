package report

import "github.com/watanabekazunori/tonarino/internal/model"

// Texts substituted when a generation step yields nothing usable.
const (
	DefaultScore      = 5
	DefaultSummary    = "データ不足"
	DefaultCommentary = "分析データが不足しています。"
)

// DefaultSuggestions replace the improvement suggestions of a failed
// comparison step.
var DefaultSuggestions = []string{
	"口コミへの返信を増やしましょう",
	"SNSでの情報発信を強化しましょう",
	"リピーター向けの特典を検討しましょう",
}

const (
	maxStores        = 5
	firstBatchSize   = 3
	maxExcerpts      = 4
	maxExcerptRunes  = 100
	maxSuggestions   = 3
	batchReviewRunes = 200
	compareTextRunes = 300
)

// DefaultScores returns a fresh set of neutral scores for the four axes.
func DefaultScores() []model.AxisScore {
	out := make([]model.AxisScore, len(model.Axes))
	for i, a := range model.Axes {
		out[i] = model.AxisScore{Axis: a, Label: a.Label(), Score: DefaultScore, Summary: DefaultSummary}
	}
	return out
}

func defaultComparisons() []model.AxisComparison {
	out := make([]model.AxisComparison, len(model.Axes))
	for i, a := range model.Axes {
		out[i] = model.AxisComparison{Axis: a, Label: a.Label(), Commentary: DefaultCommentary}
	}
	return out
}

func defaultSuggestions() []string {
	return append([]string(nil), DefaultSuggestions...)
}
