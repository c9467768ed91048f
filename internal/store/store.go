// Package store persists the remote API settings and the history of dataset
// loads.
package store

import (
	"context"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// LoadFilter narrows ListLoads.
type LoadFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// DefaultLoadLimit caps ListLoads when no limit is given.
const DefaultLoadLimit = 50

// Store is the persistence interface shared by the CLI and the HTTP server.
type Store interface {
	// GetSettings returns nil when nothing has been saved yet.
	GetSettings(ctx context.Context) (*model.APISettings, error)
	SaveSettings(ctx context.Context, s model.APISettings) error

	RecordLoad(ctx context.Context, ev model.LoadEvent) error
	// ListLoads returns the newest loads first.
	ListLoads(ctx context.Context, filter LoadFilter) ([]model.LoadEvent, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func (f LoadFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultLoadLimit
	}
	return f.Limit
}
