// Package dataset holds the active exoplanet table and the read-side views
// derived from it: filters, summaries, correlations and exports.
package dataset

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/normalize"
)

// ErrNoDataset is returned when nothing has been loaded yet.
var ErrNoDataset = eris.New("dataset: no dataset loaded")

// Session owns the current snapshot. Loads build a fresh snapshot and swap
// it in whole; readers never observe a partially loaded table.
type Session struct {
	normalizer *normalize.Normalizer
	batch      normalize.BatchOptions
	current    atomic.Pointer[model.Snapshot]
	now        func() time.Time
}

// NewSession creates an empty session. A nil normalizer uses the default
// schema.
func NewSession(n *normalize.Normalizer, batch normalize.BatchOptions) *Session {
	if n == nil {
		n = normalize.New(nil)
	}
	return &Session{normalizer: n, batch: batch, now: time.Now}
}

// Load normalizes raw and makes it the current snapshot.
func (s *Session) Load(ctx context.Context, source string, raw []model.RawRecord) (*model.Snapshot, error) {
	start := s.now()
	rows, err := s.normalizer.NormalizeAll(ctx, raw, s.batch)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: load %s", source)
	}

	snap := &model.Snapshot{
		ID:       uuid.NewString(),
		Source:   source,
		Dialect:  s.normalizer.Schema().Name,
		LoadedAt: s.now().UTC(),
		Raw:      raw,
		Rows:     rows,
	}
	s.current.Store(snap)

	zap.L().Info("dataset: loaded",
		zap.String("id", snap.ID),
		zap.String("source", source),
		zap.String("dialect", snap.Dialect),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// Current returns the active snapshot or ErrNoDataset.
func (s *Session) Current() (*model.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoDataset
	}
	return snap, nil
}

// Event summarizes a snapshot for the load history.
func Event(snap *model.Snapshot) model.LoadEvent {
	return model.LoadEvent{
		ID:       snap.ID,
		Source:   snap.Source,
		Dialect:  snap.Dialect,
		Rows:     len(snap.Rows),
		LoadedAt: snap.LoadedAt,
	}
}
