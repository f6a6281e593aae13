// Package repository stores uploaded score tables between requests.
package repository

import (
	"context"
	"time"

	"github.com/okian/gradelens/internal/domain/table"
)

// Store provides read/write access to uploaded tables. Tables are immutable
// snapshots; Save replaces any table already stored under the id.
type Store interface {
	// Save stores t under id.
	Save(ctx context.Context, id string, t *table.Table) error

	// Get returns the table stored under id.
	// Returns ErrNotFound if the id is unknown or expired.
	Get(ctx context.Context, id string) (*table.Table, error)

	// Delete drops the table. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live tables.
	Count(ctx context.Context) int

	// Close releases resources; later calls return ErrClosed.
	Close() error
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
