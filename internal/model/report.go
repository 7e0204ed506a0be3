package model

import "time"

// ReportVersion is the current review_summary layout.
const ReportVersion = 2

// Axis identifies one of the four review-quality dimensions.
type Axis string

const (
	AxisPrice   Axis = "price"
	AxisTaste   Axis = "taste"
	AxisService Axis = "service"
	AxisComfort Axis = "comfort"
)

// Axes lists the four axes in canonical order.
var Axes = []Axis{AxisPrice, AxisTaste, AxisService, AxisComfort}

// Label returns the display label of the axis.
func (a Axis) Label() string {
	switch a {
	case AxisPrice:
		return "価格"
	case AxisTaste:
		return "味"
	case AxisService:
		return "接客"
	case AxisComfort:
		return "いごこちのよさ"
	default:
		return string(a)
	}
}

// AxisScore is a 1-10 score for one axis.
type AxisScore struct {
	Axis    Axis   `json:"axis" yaml:"axis"`
	Label   string `json:"label" yaml:"label"`
	Score   int    `json:"score" yaml:"score"`
	Summary string `json:"summary" yaml:"summary"`
}

// StoreAnalysis is the scored view of one store.
type StoreAnalysis struct {
	Name        string      `json:"name" yaml:"name"`
	PlaceID     string      `json:"place_id" yaml:"place_id"`
	ReviewCount int         `json:"reviewCount" yaml:"review_count"`
	Rating      float64     `json:"rating" yaml:"rating"`
	Scores      []AxisScore `json:"scores" yaml:"scores"`
}

// AxisComparison is the commentary comparing self with competitors on one axis.
type AxisComparison struct {
	Axis       Axis   `json:"axis" yaml:"axis"`
	Label      string `json:"label" yaml:"label"`
	Commentary string `json:"commentary" yaml:"commentary"`
}

// ReviewExcerpt is a quoted review fragment with its star rating.
type ReviewExcerpt struct {
	Text   string `json:"text" yaml:"text"`
	Rating int    `json:"rating" yaml:"rating"`
}

// Report is the review_summary payload of a stored report.
type Report struct {
	Version         int              `json:"version" yaml:"version"`
	MyStore         StoreAnalysis    `json:"my_store" yaml:"my_store"`
	Competitors     []StoreAnalysis  `json:"competitors" yaml:"competitors"`
	AxisComparisons []AxisComparison `json:"axis_comparisons" yaml:"axis_comparisons"`
	GoodReviews     []ReviewExcerpt  `json:"good_reviews" yaml:"good_reviews"`
	BadReviews      []ReviewExcerpt  `json:"bad_reviews" yaml:"bad_reviews"`
	Suggestions     []string         `json:"suggestions" yaml:"suggestions"`
}

// CompetitorRef identifies a competitor included in a report.
type CompetitorRef struct {
	PlaceID string `json:"place_id" yaml:"place_id"`
	Name    string `json:"name" yaml:"name"`
}

// ReportRecord is a persisted report.
type ReportRecord struct {
	ID             string          `json:"id" yaml:"id"`
	UserID         string          `json:"user_id" yaml:"user_id"`
	PlaceID        string          `json:"place_id" yaml:"place_id"`
	Competitors    []CompetitorRef `json:"competitors_json" yaml:"competitors"`
	Summary        Report          `json:"review_summary" yaml:"review_summary"`
	ComparisonText string          `json:"comparison_text" yaml:"comparison_text"`
	Suggestions    []string        `json:"suggestions" yaml:"suggestions"`
	CreatedAt      time.Time       `json:"created_at" yaml:"created_at"`
}
