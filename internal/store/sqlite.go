package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/exoplanet-cli/internal/model"
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
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS api_settings (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	base_url     TEXT NOT NULL DEFAULT '',
	data_path    TEXT NOT NULL DEFAULT '',
	predict_path TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_loads (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	dialect   TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL DEFAULT 0,
	loaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dataset_loads_loaded_at ON dataset_loads(loaded_at);
CREATE INDEX IF NOT EXISTS idx_dataset_loads_source ON dataset_loads(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.APISettings, error) {
	var st model.APISettings
	err := s.db.QueryRowContext(ctx,
		`SELECT base_url, data_path, predict_path, updated_at FROM api_settings WHERE id = 1`,
	).Scan(&st.BaseURL, &st.DataPath, &st.PredictPath, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get settings")
	}
	return &st, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, st model.APISettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_settings (id, base_url, data_path, predict_path, updated_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			base_url = excluded.base_url,
			data_path = excluded.data_path,
			predict_path = excluded.predict_path,
			updated_at = excluded.updated_at`,
		st.BaseURL, st.DataPath, st.PredictPath, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save settings")
}

func (s *SQLiteStore) RecordLoad(ctx context.Context, ev model.LoadEvent) error {
	ev = prepareEvent(ev)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_loads (id, source, dialect, row_count, loaded_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Source, ev.Dialect, ev.Rows, ev.LoadedAt,
	)
	return eris.Wrapf(err, "sqlite: record load %s", ev.ID)
}

func (s *SQLiteStore) ListLoads(ctx context.Context, filter LoadFilter) ([]model.LoadEvent, error) {
	query := `SELECT id, source, dialect, row_count, loaded_at FROM dataset_loads`
	var args []any
	if filter.Source != "" {
		query += ` WHERE source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY loaded_at DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list loads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LoadEvent
	for rows.Next() {
		ev, err := scanLoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan load")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate loads")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLoad(row scannable) (model.LoadEvent, error) {
	var ev model.LoadEvent
	err := row.Scan(&ev.ID, &ev.Source, &ev.Dialect, &ev.Rows, &ev.LoadedAt)
	return ev, err
}

// prepareEvent fills a missing ID and timestamp.
func prepareEvent(ev model.LoadEvent) model.LoadEvent {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.LoadedAt.IsZero() {
		ev.LoadedAt = time.Now()
	}
	ev.LoadedAt = ev.LoadedAt.UTC()
	return ev
}
