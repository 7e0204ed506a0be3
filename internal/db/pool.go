// Package db opens and describes the Postgres connection pool shared by
// the persistence layer.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool used by the store. pgxmock pools
// satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Sizing applies defaults to zero fields.
func (c *PoolConfig) Sizing() (maxConns, minConns int32) {
	maxConns, minConns = 10, 2
	if c == nil {
		return maxConns, minConns
	}
	if c.MaxConns > 0 {
		maxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		minConns = c.MinConns
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	return maxConns, minConns
}

// Open creates a pgxpool from connString and verifies it with a ping.
func Open(ctx context.Context, connString string, cfg *PoolConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "db: parse config")
	}

	pgxCfg.MaxConns, pgxCfg.MinConns = cfg.Sizing()
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "db: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "db: ping")
	}
	return pool, nil
}
