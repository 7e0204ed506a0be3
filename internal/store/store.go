// Package store persists search logs and generated reports.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/watanabekazunori/tonarino/internal/model"
)

// ErrNotFound is returned when a report does not exist or belongs to
// another user.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for searches and reports.
type Store interface {
	// SaveSearch records one discovery request. An empty ID is assigned.
	SaveSearch(ctx context.Context, s *model.SearchLog) error

	// CreateReport inserts r, assigning ID and a zero CreatedAt.
	CreateReport(ctx context.Context, r *model.ReportRecord) error
	GetReport(ctx context.Context, id, userID string) (*model.ReportRecord, error)
	// ListReports returns the user's reports, newest first.
	ListReports(ctx context.Context, userID string) ([]model.ReportRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "postgres", "":
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const reportColumns = `id, user_id, place_id, competitors_json, review_summary, comparison_text, suggestions, created_at`

// reportPayload holds the JSON-encoded columns of a report row.
type reportPayload struct {
	competitors []byte
	summary     []byte
	suggestions []byte
}

func encodeReport(r *model.ReportRecord) (reportPayload, error) {
	var p reportPayload
	var err error

	competitors := r.Competitors
	if competitors == nil {
		competitors = []model.CompetitorRef{}
	}
	if p.competitors, err = json.Marshal(competitors); err != nil {
		return p, eris.Wrap(err, "store: marshal competitors")
	}
	if p.summary, err = json.Marshal(r.Summary); err != nil {
		return p, eris.Wrap(err, "store: marshal review summary")
	}
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	if p.suggestions, err = json.Marshal(suggestions); err != nil {
		return p, eris.Wrap(err, "store: marshal suggestions")
	}
	return p, nil
}

func (p reportPayload) decodeInto(r *model.ReportRecord) error {
	if err := json.Unmarshal(p.competitors, &r.Competitors); err != nil {
		return eris.Wrap(err, "store: unmarshal competitors")
	}
	if err := json.Unmarshal(p.summary, &r.Summary); err != nil {
		return eris.Wrap(err, "store: unmarshal review summary")
	}
	if len(p.suggestions) > 0 {
		if err := json.Unmarshal(p.suggestions, &r.Suggestions); err != nil {
			return eris.Wrap(err, "store: unmarshal suggestions")
		}
	}
	return nil
}

// prepare assigns the ID and creation time of a new report.
func prepare(r *model.ReportRecord) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}
