// Package store defines persistence for the bump history.
package store

import (
	"context"
	"errors"

	"github.com/bumpkit/sblp/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store records finished bumps. The cooldown table is deliberately not
// persisted here; only completed bumps are history.
type Store interface {
	RecordBump(ctx context.Context, rec model.BumpRecord) (int64, error)
	RecentBumps(ctx context.Context, limit int) ([]model.BumpRecord, error)
	LastBump(ctx context.Context, channel uint64) (model.BumpRecord, error)
	Stats(ctx context.Context) (model.BumpStats, error)
	Close() error
}
