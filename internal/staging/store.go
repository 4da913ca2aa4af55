// Package staging holds previewed import batches until they are confirmed
// or expire.
package staging

import (
	"context"
	"errors"
	"time"

	"go-retail-catalog/internal/importer"
)

// ErrNotFound is returned for batches that are absent or past their TTL.
var ErrNotFound = errors.New("staged batch not found")

type Store interface {
	Get(ctx context.Context, id string) (*importer.Batch, error)
	Put(ctx context.Context, batch *importer.Batch) error
	Delete(ctx context.Context, id string) error
	// SweepExpired drops batches whose TTL passed before now and returns their ids.
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)
}
