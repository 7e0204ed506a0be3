package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

// systemPrompt is shared by every generation call of a report.
const systemPrompt = `You are an analyst of Japanese restaurant reviews helping small restaurant owners understand how customers see them.

Rules:
- Write every summary, commentary, and suggestion in natural Japanese
- Base your judgement on the reviews provided; do not invent facts about the store
- Return ONLY a single JSON object, with no prose before or after it
- Scores are integers from 1 (very poor) to 10 (excellent)`

const axesGuide = `Score these four axes:
- price (価格): value for money
- taste (味): quality and flavour of the food
- service (接客): staff attitude and service
- comfort (いごこちのよさ): atmosphere, comfort, cleanliness
Each axis needs a score from 1 to 10 and a summary of at most 15 Japanese characters.`

const scoresExample = `  "scores": [
    {"axis": "price", "label": "価格", "score": 7, "summary": "コスパが良い"},
    {"axis": "taste", "label": "味", "score": 8, "summary": "味に定評あり"},
    {"axis": "service", "label": "接客", "score": 6, "summary": "普通の接客"},
    {"axis": "comfort", "label": "いごこちのよさ", "score": 7, "summary": "落ち着く雰囲気"}
  ]`

// storeReviews is the review material of one store.
type storeReviews struct {
	PlaceID     string
	Name        string
	Rating      float64
	ReviewCount int
	Types       []string
	Reviews     []google.Review
}

// texts joins the review bodies, one per line.
func (s storeReviews) texts() string {
	parts := make([]string, 0, len(s.Reviews))
	for _, r := range s.Reviews {
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func (s storeReviews) hasReviewText() bool {
	return s.texts() != ""
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// selfPrompt asks for axis scores and verbatim excerpts of the store's own
// reviews.
func selfPrompt(s storeReviews) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the Google reviews of the restaurant 「%s」.\n\nReviews:\n", s.Name)
	for _, r := range s.Reviews {
		if t := strings.TrimSpace(r.Text); t != "" {
			fmt.Fprintf(&b, "[%d星] %s\n", r.Rating, t)
		}
	}
	b.WriteString("\nTask 1. ")
	b.WriteString(axesGuide)
	b.WriteString(`

Task 2. Quote up to 4 positive and up to 4 negative passages from the reviews above. Copy the text verbatim (at most 100 characters each) and attach the star rating of the review it came from.

Respond with JSON in exactly this shape:
{
`)
	b.WriteString(scoresExample)
	b.WriteString(`,
  "good_reviews": [{"text": "...", "rating": 5}],
  "bad_reviews": [{"text": "...", "rating": 2}]
}`)
	return b.String()
}

// speculativePrompt is used when the store has no review text. Excerpts are
// not requested.
func speculativePrompt(s storeReviews) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assess the restaurant 「%s」.\n", s.Name)
	if s.Rating > 0 {
		fmt.Fprintf(&b, "Google評価: %s点（%d件）\n", formatRating(s.Rating), s.ReviewCount)
	}
	b.WriteString("\nNo review text is available. Estimate from the store name and typical tendencies of similar stores, and make clear in each summary that it is an estimate (for example 「推測: 標準的」).\n\n")
	b.WriteString(axesGuide)
	b.WriteString("\n\nRespond with JSON in exactly this shape:\n{\n")
	b.WriteString(scoresExample)
	b.WriteString(",\n  \"good_reviews\": [],\n  \"bad_reviews\": []\n}")
	return b.String()
}

// batchPrompt asks for axis scores of several competitors in one call. The
// response must list the stores in the order given.
func batchPrompt(stores []storeReviews) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score each of the following %d restaurants.\n\n", len(stores))
	for i, s := range stores {
		fmt.Fprintf(&b, "【店舗%d: %s】\n", i+1, s.Name)
		if !s.hasReviewText() {
			rating := "不明"
			if s.Rating > 0 {
				rating = formatRating(s.Rating)
			}
			fmt.Fprintf(&b, "口コミなし（Google評価: %s点、%d件）\n\n", rating, s.ReviewCount)
			continue
		}
		for _, r := range s.Reviews {
			if t := strings.TrimSpace(r.Text); t != "" {
				fmt.Fprintf(&b, "[%d星] %s\n", r.Rating, truncateRunes(t, batchReviewRunes))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(axesGuide)
	b.WriteString("\n\nReturn the stores in the same order as above, using JSON in exactly this shape:\n{\n  \"stores\": [\n    {\n      \"name\": \"")
	b.WriteString(stores[0].Name)
	b.WriteString("\",\n")
	b.WriteString(strings.ReplaceAll(scoresExample, "\n", "\n    "))
	b.WriteString("\n    }\n  ]\n}")
	return b.String()
}

// comparedStore is one store as seen by the comparison call.
type comparedStore struct {
	Name    string
	Scores  []model.AxisScore
	Reviews string
}

func formatScores(scores []model.AxisScore) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%s: %d/10", s.Label, s.Score)
	}
	return strings.Join(parts, ", ")
}

// comparisonPrompt asks for per-axis commentary and three suggestions.
func comparisonPrompt(self comparedStore, competitors []comparedStore, genreContext string) string {
	var b strings.Builder
	b.WriteString("Compare the restaurant below with its nearby competitors on the four axes.")
	if genreContext != "" {
		fmt.Fprintf(&b, " The store is a 「%s」; make the analysis specific to that genre.", genreContext)
	}
	fmt.Fprintf(&b, "\n\n【自店: %s】\nスコア: %s\n口コミ: %s\n\n【競合店舗】\n",
		self.Name, formatScores(self.Scores), truncateRunes(self.Reviews, compareTextRunes))
	for _, c := range competitors {
		fmt.Fprintf(&b, "【%s】スコア: %s\n口コミ: %s\n\n",
			c.Name, formatScores(c.Scores), truncateRunes(c.Reviews, compareTextRunes))
	}
	b.WriteString(`Produce:
1. For each axis, commentary of at most 80 Japanese characters on how the store differs from its competitors
2. Exactly 3 concrete improvement suggestions of at most 50 Japanese characters each

Respond with JSON in exactly this shape:
{
  "axis_comparisons": [
    {"axis": "price", "label": "価格", "commentary": "..."},
    {"axis": "taste", "label": "味", "commentary": "..."},
    {"axis": "service", "label": "接客", "commentary": "..."},
    {"axis": "comfort", "label": "いごこちのよさ", "commentary": "..."}
  ],
  "suggestions": ["...", "...", "..."]
}`)
	return b.String()
}
