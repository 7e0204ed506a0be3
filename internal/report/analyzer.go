// Package report builds the AI-assisted competitor comparison report: review
// collection, axis scoring of the store and its competitors, and the final
// per-axis comparison with improvement suggestions.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/watanabekazunori/tonarino/internal/genre"
	"github.com/watanabekazunori/tonarino/internal/metrics"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/internal/resilience"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

// DefaultCallDelay separates consecutive generation calls to stay inside the
// text service's request-rate budget.
const DefaultCallDelay = 15 * time.Second

// Report steps, used as metric labels.
const (
	stepSelf       = "self"
	stepBatch      = "batch"
	stepComparison = "comparison"
)

// ErrInvalidInput is returned for a request missing required fields.
var ErrInvalidInput = eris.New("report: invalid input")

// DetailsSource fetches place details with reviews.
type DetailsSource interface {
	Details(ctx context.Context, placeID string, fields ...string) (*google.DetailsResponse, error)
}

// Recorder persists a finished report and assigns its ID.
type Recorder interface {
	CreateReport(ctx context.Context, rec *model.ReportRecord) error
}

// Config tunes an Analyzer.
type Config struct {
	// CallDelay is waited before every competitor batch call and before the
	// comparison call. Defaults to DefaultCallDelay.
	CallDelay time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Request identifies the report to generate.
type Request struct {
	UserID        string
	PlaceID       string
	CompetitorIDs []string
}

// Analyzer orchestrates report generation. Generation calls are strictly
// sequential; only place detail lookups run in parallel.
type Analyzer struct {
	places   DetailsSource
	gen      Generator
	recorder Recorder
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewAnalyzer creates an Analyzer. recorder may be nil when only Analyze is
// used.
func NewAnalyzer(places DetailsSource, gen Generator, recorder Recorder, cfg Config) *Analyzer {
	if cfg.CallDelay <= 0 {
		cfg.CallDelay = DefaultCallDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = resilience.SleepContext
	}
	return &Analyzer{
		places:   places,
		gen:      gen,
		recorder: recorder,
		delay:    cfg.CallDelay,
		sleep:    cfg.Sleep,
		now:      time.Now,
	}
}

// Run generates a report and persists it. A persistence failure fails the
// whole request.
func (a *Analyzer) Run(ctx context.Context, req Request) (*model.ReportRecord, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "user id is required")
	}
	if a.recorder == nil {
		return nil, eris.New("report: no recorder configured")
	}

	ids := capIDs(req.CompetitorIDs)
	rep, err := a.Analyze(ctx, req.PlaceID, ids)
	if err != nil {
		return nil, err
	}

	rec := &model.ReportRecord{
		UserID:         req.UserID,
		PlaceID:        req.PlaceID,
		Competitors:    make([]model.CompetitorRef, len(ids)),
		Summary:        *rep,
		ComparisonText: ComparisonText(rep.AxisComparisons),
		Suggestions:    rep.Suggestions,
		CreatedAt:      a.now().UTC(),
	}
	for i, id := range ids {
		rec.Competitors[i] = model.CompetitorRef{PlaceID: id, Name: rep.Competitors[i].Name}
	}

	if err := a.recorder.CreateReport(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "report: save")
	}

	zap.L().Info("report saved",
		zap.String("report_id", rec.ID),
		zap.String("place_id", rec.PlaceID),
		zap.Int("competitors", len(rec.Competitors)),
	)
	return rec, nil
}

// Analyze builds the report for placeID against at most five competitors.
// Only a failed lookup of the store itself, or cancellation, is an error;
// every generation failure is replaced with defaults.
func (a *Analyzer) Analyze(ctx context.Context, placeID string, competitorIDs []string) (*model.Report, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "place id is required")
	}
	start := time.Now()
	ids := capIDs(competitorIDs)
	log := zap.L().With(zap.String("component", "report"), zap.String("place_id", placeID))

	self, err := a.fetch(ctx, placeID)
	if err != nil {
		return nil, eris.Wrap(err, "report: fetch store details")
	}
	log.Info("store details fetched", zap.String("name", self.Name), zap.Int("reviews", len(self.Reviews)))

	selfScores, good, bad := a.analyzeSelf(ctx, log, self)

	competitors := a.fetchCompetitors(ctx, log, ids)

	split := min(firstBatchSize, len(competitors))
	compScores := make([][]model.AxisScore, 0, len(competitors))
	for _, batch := range [][]storeReviews{competitors[:split], competitors[split:]} {
		if len(batch) == 0 {
			continue
		}
		if err := a.wait(ctx, log, stepBatch); err != nil {
			return nil, err
		}
		compScores = append(compScores, a.scoreBatch(ctx, log, batch)...)
	}

	if err := a.wait(ctx, log, stepComparison); err != nil {
		return nil, err
	}
	comparisons, suggestions := a.compare(ctx, log, self, selfScores, competitors, compScores)

	rep := &model.Report{
		Version: model.ReportVersion,
		MyStore: model.StoreAnalysis{
			Name:        self.Name,
			PlaceID:     placeID,
			ReviewCount: self.ReviewCount,
			Rating:      self.Rating,
			Scores:      selfScores,
		},
		Competitors:     make([]model.StoreAnalysis, len(competitors)),
		AxisComparisons: comparisons,
		GoodReviews:     good,
		BadReviews:      bad,
		Suggestions:     suggestions,
	}
	for i, c := range competitors {
		rep.Competitors[i] = model.StoreAnalysis{
			Name:        c.Name,
			PlaceID:     c.PlaceID,
			ReviewCount: c.ReviewCount,
			Rating:      c.Rating,
			Scores:      compScores[i],
		}
	}

	metrics.ReportDuration.Observe(time.Since(start).Seconds())
	log.Info("report generated",
		zap.Int("competitors", len(competitors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

func (a *Analyzer) fetch(ctx context.Context, placeID string) (storeReviews, error) {
	resp, err := a.places.Details(ctx, placeID, google.DetailsFields...)
	if err != nil {
		return storeReviews{}, err
	}
	r := resp.Result
	return storeReviews{
		PlaceID:     placeID,
		Name:        r.Name,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
		Types:       r.Types,
		Reviews:     r.Reviews,
	}, nil
}

// fetchCompetitors looks up every competitor in parallel. A failed lookup
// leaves that store with empty details.
func (a *Analyzer) fetchCompetitors(ctx context.Context, log *zap.Logger, ids []string) []storeReviews {
	out := make([]storeReviews, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			s, err := a.fetch(gctx, id)
			if err != nil {
				log.Warn("competitor details failed", zap.String("competitor_id", id), zap.Error(err))
				s = storeReviews{PlaceID: id}
			}
			out[i] = s
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Analyzer) wait(ctx context.Context, log *zap.Logger, next string) error {
	log.Debug("waiting before generation call", zap.String("step", next), zap.Duration("delay", a.delay))
	if err := a.sleep(ctx, a.delay); err != nil {
		return eris.Wrap(err, "report: wait before "+next)
	}
	return nil
}

func (a *Analyzer) generate(ctx context.Context, log *zap.Logger, step, prompt string) (string, bool) {
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		metrics.AICalls.WithLabelValues(step, metrics.OutcomeError).Inc()
		log.Warn("generation failed, using defaults", zap.String("step", step), zap.Error(err))
		return "", false
	}
	metrics.AICalls.WithLabelValues(step, metrics.OutcomeOK).Inc()
	return text, true
}

func substituted(log *zap.Logger, step string, err error) {
	metrics.AIDefaults.WithLabelValues(step).Inc()
	log.Warn("unusable generation output, using defaults", zap.String("step", step), zap.Error(err))
}

// analyzeSelf scores the store and extracts review excerpts. Without review
// text the scores are estimated and no excerpts are kept.
func (a *Analyzer) analyzeSelf(ctx context.Context, log *zap.Logger, self storeReviews) ([]model.AxisScore, []model.ReviewExcerpt, []model.ReviewExcerpt) {
	good, bad := []model.ReviewExcerpt{}, []model.ReviewExcerpt{}
	if self.Name == "" {
		substituted(log, stepSelf, eris.New("store has no name"))
		return DefaultScores(), good, bad
	}

	prompt := speculativePrompt(self)
	if self.hasReviewText() {
		prompt = selfPrompt(self)
	}

	text, ok := a.generate(ctx, log, stepSelf, prompt)
	if !ok {
		metrics.AIDefaults.WithLabelValues(stepSelf).Inc()
		return DefaultScores(), good, bad
	}

	scores, g, b, valid, err := parseSelf(text)
	if err != nil {
		substituted(log, stepSelf, err)
		return DefaultScores(), good, bad
	}
	if self.hasReviewText() {
		good, bad = g, b
	}
	if !valid {
		substituted(log, stepSelf, eris.New("score set does not cover the four axes"))
		scores = DefaultScores()
	}
	return scores, good, bad
}

// scoreBatch scores one batch of competitors in a single call. The result has
// one entry per store, defaulted where the response was unusable.
func (a *Analyzer) scoreBatch(ctx context.Context, log *zap.Logger, stores []storeReviews) [][]model.AxisScore {
	out := make([][]model.AxisScore, len(stores))

	if text, ok := a.generate(ctx, log, stepBatch, batchPrompt(stores)); ok {
		parsed, err := parseBatch(text, len(stores))
		if err != nil {
			substituted(log, stepBatch, err)
		} else {
			copy(out, parsed)
		}
	}

	for i := range out {
		if out[i] == nil {
			metrics.AIDefaults.WithLabelValues(stepBatch).Inc()
			log.Debug("default scores for competitor", zap.String("competitor_id", stores[i].PlaceID))
			out[i] = DefaultScores()
		}
	}
	return out
}

func (a *Analyzer) compare(ctx context.Context, log *zap.Logger, self storeReviews, selfScores []model.AxisScore, competitors []storeReviews, compScores [][]model.AxisScore) ([]model.AxisComparison, []string) {
	others := make([]comparedStore, len(competitors))
	for i, c := range competitors {
		others[i] = comparedStore{Name: c.Name, Scores: compScores[i], Reviews: c.texts()}
	}
	prompt := comparisonPrompt(
		comparedStore{Name: self.Name, Scores: selfScores, Reviews: self.texts()},
		others,
		genre.Classify(self.Name, self.Types...).Context(),
	)

	text, ok := a.generate(ctx, log, stepComparison, prompt)
	if !ok {
		metrics.AIDefaults.WithLabelValues(stepComparison).Inc()
		return defaultComparisons(), defaultSuggestions()
	}
	comparisons, suggestions, err := parseComparison(text)
	if err != nil {
		substituted(log, stepComparison, err)
		return defaultComparisons(), defaultSuggestions()
	}
	return comparisons, suggestions
}

// ComparisonText renders the axis comparisons as 【label】commentary lines.
func ComparisonText(comparisons []model.AxisComparison) string {
	lines := make([]string, len(comparisons))
	for i, c := range comparisons {
		lines[i] = "【" + c.Label + "】" + c.Commentary
	}
	return strings.Join(lines, "\n")
}

func capIDs(ids []string) []string {
	if len(ids) > maxStores {
		return ids[:maxStores]
	}
	return ids
}
