package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 0
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS api_settings (
	id           SMALLINT PRIMARY KEY CHECK (id = 1),
	base_url     TEXT NOT NULL DEFAULT '',
	data_path    TEXT NOT NULL DEFAULT '',
	predict_path TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_loads (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source    TEXT NOT NULL,
	dialect   TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL DEFAULT 0,
	loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dataset_loads_loaded_at ON dataset_loads(loaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_dataset_loads_source ON dataset_loads(source);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
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

func (s *PostgresStore) GetSettings(ctx context.Context) (*model.APISettings, error) {
	var st model.APISettings
	err := s.pool.QueryRow(ctx,
		`SELECT base_url, data_path, predict_path, updated_at FROM api_settings WHERE id = 1`,
	).Scan(&st.BaseURL, &st.DataPath, &st.PredictPath, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get settings")
	}
	return &st, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, st model.APISettings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_settings (id, base_url, data_path, predict_path, updated_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			base_url = EXCLUDED.base_url,
			data_path = EXCLUDED.data_path,
			predict_path = EXCLUDED.predict_path,
			updated_at = EXCLUDED.updated_at`,
		st.BaseURL, st.DataPath, st.PredictPath, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save settings")
}

func (s *PostgresStore) RecordLoad(ctx context.Context, ev model.LoadEvent) error {
	ev = prepareEvent(ev)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dataset_loads (id, source, dialect, row_count, loaded_at) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.Source, ev.Dialect, ev.Rows, ev.LoadedAt,
	)
	return eris.Wrapf(err, "postgres: record load %s", ev.ID)
}

func (s *PostgresStore) ListLoads(ctx context.Context, filter LoadFilter) ([]model.LoadEvent, error) {
	query := `SELECT id, source, dialect, row_count, loaded_at FROM dataset_loads`
	args := []any{}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(` WHERE source = $%d`, len(args))
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(` ORDER BY loaded_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list loads")
	}
	defer rows.Close()

	var out []model.LoadEvent
	for rows.Next() {
		ev, err := scanLoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan load")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate loads")
}
