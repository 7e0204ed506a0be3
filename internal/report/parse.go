package report

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/watanabekazunori/tonarino/internal/model"
)

// errNoJSON is returned when a response contains no JSON object.
var errNoJSON = eris.New("report: no JSON object in response")

const scoreItemSchema = `{
	"type": "object",
	"required": ["axis", "score"],
	"properties": {
		"axis": {"type": "string"},
		"label": {"type": "string"},
		"score": {"type": "number"},
		"summary": {"type": "string"}
	}
}`

const excerptSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["text"],
		"properties": {
			"text": {"type": "string"},
			"rating": {"type": "number"}
		}
	}
}`

var (
	selfSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["scores"],
		"properties": {
			"scores": {"type": "array", "items": ` + scoreItemSchema + `},
			"good_reviews": ` + excerptSchema + `,
			"bad_reviews": ` + excerptSchema + `
		}
	}`)

	batchSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["stores"],
		"properties": {
			"stores": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"scores": {"type": "array"}
					}
				}
			}
		}
	}`)

	comparisonSchema = gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["axis_comparisons", "suggestions"],
		"properties": {
			"axis_comparisons": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["axis", "commentary"],
					"properties": {
						"axis": {"type": "string"},
						"label": {"type": "string"},
						"commentary": {"type": "string"}
					}
				}
			},
			"suggestions": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)

type rawScore struct {
	Axis    string  `json:"axis"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

type rawExcerpt struct {
	Text   string  `json:"text"`
	Rating float64 `json:"rating"`
}

type selfResponse struct {
	Scores      []rawScore   `json:"scores"`
	GoodReviews []rawExcerpt `json:"good_reviews"`
	BadReviews  []rawExcerpt `json:"bad_reviews"`
}

type batchResponse struct {
	Stores []struct {
		Name   string     `json:"name"`
		Scores []rawScore `json:"scores"`
	} `json:"stores"`
}

type comparisonResponse struct {
	AxisComparisons []struct {
		Axis       string `json:"axis"`
		Label      string `json:"label"`
		Commentary string `json:"commentary"`
	} `json:"axis_comparisons"`
	Suggestions []string `json:"suggestions"`
}

// extractJSON returns the span from the first '{' to the last '}' of text,
// ignoring any surrounding prose or code fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

// decode extracts the JSON object from text, validates it against schema,
// and unmarshals it into out.
func decode(text string, schema gojsonschema.JSONLoader, out any) error {
	raw, err := extractJSON(text)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return eris.Wrap(err, "report: parse response")
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return eris.Errorf("report: response does not match schema: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return eris.Wrap(err, "report: unmarshal response")
	}
	return nil
}

// normalizeScores accepts a score set only when it holds each of the four
// axes exactly once. The result is in canonical axis order with canonical
// labels and scores rounded and clamped to [1,10].
func normalizeScores(raw []rawScore) ([]model.AxisScore, bool) {
	if len(raw) != len(model.Axes) {
		return nil, false
	}

	byAxis := make(map[model.Axis]rawScore, len(raw))
	for _, r := range raw {
		a := model.Axis(strings.ToLower(strings.TrimSpace(r.Axis)))
		if _, dup := byAxis[a]; dup {
			return nil, false
		}
		byAxis[a] = r
	}

	out := make([]model.AxisScore, len(model.Axes))
	for i, a := range model.Axes {
		r, ok := byAxis[a]
		if !ok {
			return nil, false
		}
		out[i] = model.AxisScore{
			Axis:    a,
			Label:   a.Label(),
			Score:   clampScore(r.Score),
			Summary: r.Summary,
		}
	}
	return out, true
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return DefaultScore
	}
	return int(max(1, min(10, math.Round(v))))
}

// normalizeExcerpts keeps at most maxExcerpts non-empty excerpts, truncating
// text and clamping the star rating to [1,5].
func normalizeExcerpts(raw []rawExcerpt) []model.ReviewExcerpt {
	out := make([]model.ReviewExcerpt, 0, min(len(raw), maxExcerpts))
	for _, r := range raw {
		if len(out) == maxExcerpts {
			break
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		rating := 1
		if !math.IsNaN(r.Rating) {
			rating = int(max(1, min(5, math.Round(r.Rating))))
		}
		out = append(out, model.ReviewExcerpt{Text: truncateRunes(text, maxExcerptRunes), Rating: rating})
	}
	return out
}

// parseSelf decodes the self analysis. ok is false when the scores were not
// usable; excerpts are still returned in that case.
func parseSelf(text string) (scores []model.AxisScore, good, bad []model.ReviewExcerpt, ok bool, err error) {
	var resp selfResponse
	if err := decode(text, selfSchema, &resp); err != nil {
		return nil, nil, nil, false, err
	}
	scores, ok = normalizeScores(resp.Scores)
	return scores, normalizeExcerpts(resp.GoodReviews), normalizeExcerpts(resp.BadReviews), ok, nil
}

// parseBatch decodes a batch response for n stores. Entry i is nil when the
// response had no usable scores for store i.
func parseBatch(text string, n int) ([][]model.AxisScore, error) {
	var resp batchResponse
	if err := decode(text, batchSchema, &resp); err != nil {
		return nil, err
	}
	out := make([][]model.AxisScore, n)
	for i := 0; i < n && i < len(resp.Stores); i++ {
		if scores, ok := normalizeScores(resp.Stores[i].Scores); ok {
			out[i] = scores
		}
	}
	return out, nil
}

// parseComparison decodes the comparison block. It fails unless every axis
// has commentary and at least one suggestion is present.
func parseComparison(text string) ([]model.AxisComparison, []string, error) {
	var resp comparisonResponse
	if err := decode(text, comparisonSchema, &resp); err != nil {
		return nil, nil, err
	}

	byAxis := make(map[model.Axis]string, len(resp.AxisComparisons))
	for _, c := range resp.AxisComparisons {
		a := model.Axis(strings.ToLower(strings.TrimSpace(c.Axis)))
		if _, seen := byAxis[a]; !seen {
			byAxis[a] = strings.TrimSpace(c.Commentary)
		}
	}

	comparisons := make([]model.AxisComparison, len(model.Axes))
	for i, a := range model.Axes {
		commentary, ok := byAxis[a]
		if !ok || commentary == "" {
			return nil, nil, eris.Errorf("report: comparison missing axis %q", a)
		}
		comparisons[i] = model.AxisComparison{Axis: a, Label: a.Label(), Commentary: commentary}
	}

	suggestions := make([]string, 0, maxSuggestions)
	for _, s := range resp.Suggestions {
		if s = strings.TrimSpace(s); s != "" && len(suggestions) < maxSuggestions {
			suggestions = append(suggestions, s)
		}
	}
	if len(suggestions) == 0 {
		return nil, nil, eris.New("report: comparison has no suggestions")
	}

	return comparisons, suggestions, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
