package normalize

import (
	"context"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Normalizer turns raw records into canonical rows using a Schema.
// It holds no per-row state and is safe for concurrent use.
type Normalizer struct {
	schema *Schema
}

// New creates a Normalizer. A nil schema selects DefaultSchema.
func New(schema *Schema) *Normalizer {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Normalizer{schema: schema}
}

// Schema returns the table this normalizer resolves against.
func (n *Normalizer) Schema() *Schema { return n.schema }

// Normalize maps one record. It never fails: fields that cannot be resolved
// or coerced are left absent, and the label falls back to model.DefaultLabel.
func (n *Normalizer) Normalize(rec model.RawRecord) model.CanonicalRow {
	idx := NewIndex(rec)
	row := model.CanonicalRow{Label: model.DefaultLabel}

	for _, fs := range n.schema.Fields {
		v := idx.lookupFolded(fs.keys)
		if v.IsEmpty() {
			continue
		}
		switch fs.Kind {
		case KindNumber:
			if f, ok := ToNumber(v); ok {
				row.SetFloat(fs.Field, f)
			}
		case KindYear:
			if fs.Field != model.FieldDiscoveryYear {
				continue
			}
			if y, ok := ToYear(v); ok {
				row.DiscoveryYear = &y
			}
		case KindLabel, KindText:
			if s := strings.TrimSpace(v.String()); s != "" {
				row.SetText(fs.Field, s)
			}
		}
	}

	derive(&row)
	return row
}

// BatchOptions tunes NormalizeAll.
type BatchOptions struct {
	Workers   int // default GOMAXPROCS
	ChunkSize int // default 2048 rows
}

// NormalizeAll maps records in order. Chunks run concurrently and the
// context is checked between chunks, so large loads can be abandoned.
func (n *Normalizer) NormalizeAll(ctx context.Context, records []model.RawRecord, opts BatchOptions) ([]model.CanonicalRow, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 2048
	}

	out := make([]model.CanonicalRow, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < len(records); start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "normalize: context cancelled")
			}
			for i := start; i < end; i++ {
				out[i] = n.Normalize(records[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
