package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/watanabekazunori/tonarino/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL DEFAULT '',
	place_id   TEXT NOT NULL,
	place_name TEXT NOT NULL DEFAULT '',
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	area       TEXT NOT NULL DEFAULT '',
	ip         TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	place_id         TEXT NOT NULL,
	competitors_json TEXT NOT NULL DEFAULT '[]',
	review_summary   TEXT NOT NULL,
	comparison_text  TEXT NOT NULL DEFAULT '',
	suggestions      TEXT NOT NULL DEFAULT '[]',
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_place_id ON searches(place_id);
CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSearch(ctx context.Context, l *model.SearchLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, place_id, place_name, lat, lng, area, ip, user_agent) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Query, l.PlaceID, l.PlaceName, l.Lat, l.Lng, l.Area, l.IP, l.UserAgent,
	)
	return eris.Wrap(err, "sqlite: insert search")
}

func (s *SQLiteStore) CreateReport(ctx context.Context, r *model.ReportRecord) error {
	p, err := encodeReport(r)
	if err != nil {
		return err
	}
	prepare(r)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.PlaceID, string(p.competitors), string(p.summary), r.ComparisonText, string(p.suggestions), r.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert report")
}

func (s *SQLiteStore) GetReport(ctx context.Context, id, userID string) (*model.ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	r, err := scanSQLiteReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: report %s", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, userID string) ([]model.ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	reports := []model.ReportRecord{}
	for rows.Next() {
		r, err := scanSQLiteReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteReport(row scannable) (*model.ReportRecord, error) {
	var r model.ReportRecord
	var competitors, summary, suggestions string

	err := row.Scan(&r.ID, &r.UserID, &r.PlaceID, &competitors, &summary, &r.ComparisonText, &suggestions, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan report")
	}

	p := reportPayload{
		competitors: []byte(competitors),
		summary:     []byte(summary),
		suggestions: []byte(suggestions),
	}
	if err := p.decodeInto(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
