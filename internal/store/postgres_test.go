package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watanabekazunori/tonarino/internal/geo"
	"github.com/watanabekazunori/tonarino/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var reportRowColumns = []string{"id", "user_id", "place_id", "competitors_json", "review_summary", "comparison_text", "suggestions", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS searches`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	log := &model.SearchLog{
		Query:     "一蘭",
		PlaceID:   "p1",
		PlaceName: "一蘭 渋谷店",
		Lat:       35.6595,
		Lng:       139.7005,
		IP:        "203.0.113.7",
		UserAgent: "test",
	}
	location, err := geo.EncodeEWKB(geo.Point{Lat: log.Lat, Lng: log.Lng})
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(pgxmock.AnyArg(), "一蘭", "p1", "一蘭 渋谷店", 35.6595, 139.7005, location, "", "203.0.113.7", "test").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveSearch(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSearch_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WillReturnError(errors.New("connection reset"))

	err := s.SaveSearch(context.Background(), &model.SearchLog{PlaceID: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert search")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := &model.ReportRecord{
		UserID:      "u1",
		PlaceID:     "p1",
		Competitors: []model.CompetitorRef{{PlaceID: "c1", Name: "競合"}},
		Summary:     model.Report{Version: model.ReportVersion},
		Suggestions: []string{"a"},
	}

	mock.ExpectExec(`INSERT INTO reports \(id, user_id, place_id`).
		WithArgs(pgxmock.AnyArg(), "u1", "p1",
			[]byte(`[{"place_id":"c1","name":"競合"}]`),
			pgxmock.AnyArg(), "",
			[]byte(`["a"]`),
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateReport(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, user_id, .* FROM reports WHERE id = \$1 AND user_id = \$2`).
		WithArgs("r1", "u1").
		WillReturnRows(pgxmock.NewRows(reportRowColumns).AddRow(
			"r1", "u1", "p1",
			[]byte(`[{"place_id":"c1","name":"競合"}]`),
			[]byte(`{"version":2,"my_store":{"name":"自店","place_id":"p1"}}`),
			"【価格】安い",
			[]byte(`["x","y"]`),
			created,
		))

	r, err := s.GetReport(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, []model.CompetitorRef{{PlaceID: "c1", Name: "競合"}}, r.Competitors)
	assert.Equal(t, 2, r.Summary.Version)
	assert.Equal(t, "自店", r.Summary.MyStore.Name)
	assert.Equal(t, "【価格】安い", r.ComparisonText)
	assert.Equal(t, []string{"x", "y"}, r.Suggestions)
	assert.True(t, created.Equal(r.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE id = \$1 AND user_id = \$2`).
		WithArgs("missing", "u1").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReport(context.Background(), "missing", "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport_BadJSON(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE id`).
		WithArgs("r1", "u1").
		WillReturnRows(pgxmock.NewRows(reportRowColumns).AddRow(
			"r1", "u1", "p1", []byte(`not json`), []byte(`{}`), "", []byte(`[]`), time.Now(),
		))

	_, err := s.GetReport(context.Background(), "r1", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal competitors")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStore_ListReports(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	newer := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM reports WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(reportRowColumns).
			AddRow("r2", "u1", "p1", []byte(`[]`), []byte(`{"version":2}`), "", []byte(`[]`), newer).
			AddRow("r1", "u1", "p1", []byte(`[]`), []byte(`{"version":2}`), "", []byte(`[]`), older))

	reports, err := s.ListReports(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
	assert.Equal(t, "r1", reports[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE user_id`).
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows(reportRowColumns))

	reports, err := s.ListReports(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)

	assert.NoError(t, (&PostgresStore{}).Close())
}
