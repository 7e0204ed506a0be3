package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/watanabekazunori/tonarino/internal/db"
	"github.com/watanabekazunori/tonarino/internal/geo"
	"github.com/watanabekazunori/tonarino/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Open(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query      TEXT NOT NULL DEFAULT '',
	place_id   TEXT NOT NULL,
	place_name TEXT NOT NULL DEFAULT '',
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	location   BYTEA,
	area       TEXT NOT NULL DEFAULT '',
	ip         TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id          TEXT NOT NULL,
	place_id         TEXT NOT NULL,
	competitors_json JSONB NOT NULL DEFAULT '[]',
	review_summary   JSONB NOT NULL,
	comparison_text  TEXT NOT NULL DEFAULT '',
	suggestions      JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_place_id ON searches(place_id);
CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSearch(ctx context.Context, l *model.SearchLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}

	location, err := geo.EncodeEWKB(geo.Point{Lat: l.Lat, Lng: l.Lng})
	if err != nil {
		return eris.Wrap(err, "postgres: encode search location")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO searches (id, query, place_id, place_name, lat, lng, location, area, ip, user_agent) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.Query, l.PlaceID, l.PlaceName, l.Lat, l.Lng, location, l.Area, l.IP, l.UserAgent,
	)
	return eris.Wrap(err, "postgres: insert search")
}

func (s *PostgresStore) CreateReport(ctx context.Context, r *model.ReportRecord) error {
	p, err := encodeReport(r)
	if err != nil {
		return err
	}
	prepare(r)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.PlaceID, p.competitors, p.summary, r.ComparisonText, p.suggestions, r.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert report")
}

func (s *PostgresStore) GetReport(ctx context.Context, id, userID string) (*model.ReportRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	r, err := scanPostgresReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: report %s", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, userID string) ([]model.ReportRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	reports := []model.ReportRecord{}
	for rows.Next() {
		r, err := scanPostgresReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func scanPostgresReport(row pgx.Row) (*model.ReportRecord, error) {
	var r model.ReportRecord
	var p reportPayload

	err := row.Scan(&r.ID, &r.UserID, &r.PlaceID, &p.competitors, &p.summary, &r.ComparisonText, &p.suggestions, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan report")
	}
	if err := p.decodeInto(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
