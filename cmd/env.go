package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/config"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/fetcher"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/normalize"
	"github.com/sells-group/exoplanet-cli/internal/ranking"
	"github.com/sells-group/exoplanet-cli/internal/resilience"
	"github.com/sells-group/exoplanet-cli/internal/store"
)

// dialectOverride is set by commands that accept --dialect.
var dialectOverride string

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		var poolCfg *store.PoolConfig
		if cfg.Store.MaxConns > 0 {
			poolCfg = &store.PoolConfig{MaxConns: cfg.Store.MaxConns}
		}
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// schemaFor resolves the column schema from the normalize config. A schema
// file wins over the dialect.
func schemaFor(c config.NormalizeConfig) (*normalize.Schema, error) {
	if c.SchemaFile != "" {
		return normalize.LoadSchema(c.SchemaFile)
	}
	return normalize.Dialect(c.Dialect)
}

func newNormalizer() (*normalize.Normalizer, error) {
	nc := cfg.Normalize
	if dialectOverride != "" {
		nc.Dialect = dialectOverride
		nc.SchemaFile = ""
	}
	schema, err := schemaFor(nc)
	if err != nil {
		return nil, err
	}
	return normalize.New(schema), nil
}

func newSession() (*dataset.Session, error) {
	n, err := newNormalizer()
	if err != nil {
		return nil, err
	}
	return dataset.NewSession(n, normalize.BatchOptions{
		Workers:   cfg.Normalize.Workers,
		ChunkSize: cfg.Normalize.ChunkSize,
	}), nil
}

func newLoader() *fetcher.Loader {
	return fetcher.NewLoader(
		fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		},
		fetcher.FTPOptions{
			Timeout:  time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			User:     cfg.Fetch.FTPUser,
			Password: cfg.Fetch.FTPPassword,
			Retry: resilience.Policy{
				Attempts: cfg.Fetch.MaxRetries + 1,
				OnRetry:  resilience.LogRetry("ftp", "dial"),
			},
		},
	)
}

// loadSource fetches source and makes it the current snapshot of a fresh
// session.
func loadSource(ctx context.Context, source string) (*model.Snapshot, error) {
	return loadSourceSaving(ctx, source, "")
}

// loadSourceSaving is loadSource that also keeps the fetched bytes at
// saveRaw when it is set.
func loadSourceSaving(ctx context.Context, source, saveRaw string) (*model.Snapshot, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	loader := newLoader()
	var recs []model.RawRecord
	if saveRaw != "" {
		recs, err = loader.Mirror(ctx, source, saveRaw)
	} else {
		recs, err = loader.Load(ctx, source)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "load %s", source)
	}
	return sess.Load(ctx, source, recs)
}

// recordLoad appends snap to the load history. Failures are logged only.
func recordLoad(ctx context.Context, snap *model.Snapshot) {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("load history unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck

	if err := st.RecordLoad(ctx, dataset.Event(snap)); err != nil {
		zap.L().Warn("record load failed", zap.String("id", snap.ID), zap.Error(err))
	}
}

// apiDefaults returns the configured endpoint used until settings are saved.
func apiDefaults() model.APISettings {
	return api.WithDefaults(model.APISettings{
		BaseURL:     cfg.API.BaseURL,
		DataPath:    cfg.API.DataPath,
		PredictPath: cfg.API.PredictPath,
	})
}

// resolveSettings returns the stored settings, falling back to apiDefaults.
func resolveSettings(ctx context.Context, st store.Store) (model.APISettings, error) {
	stored, err := st.GetSettings(ctx)
	if err != nil {
		return model.APISettings{}, err
	}
	if stored == nil {
		return apiDefaults(), nil
	}
	return api.WithDefaults(*stored), nil
}

func newAPIClient(s model.APISettings) api.Client {
	policy := resilience.DefaultPolicy()
	if cfg.API.MaxAttempts > 0 {
		policy.Attempts = cfg.API.MaxAttempts
	}
	policy.OnRetry = resilience.LogRetry("api", "request")

	opts := []api.Option{api.WithPolicy(policy)}
	if cfg.API.TimeoutSecs > 0 {
		opts = append(opts, api.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.API.TimeoutSecs) * time.Second}))
	}
	return api.NewClient(s, opts...)
}

func rankingRequest() ranking.Request {
	return ranking.Request{
		Mode:       ranking.Mode(cfg.Ranking.Mode),
		Target:     cfg.Ranking.Target,
		Features:   cfg.Ranking.Features,
		MinSamples: cfg.Ranking.MinSamples,
	}
}
