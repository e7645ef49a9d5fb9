// Package store provides the local track store: track records keyed by
// track id, with blind upserts and empty records for unknown ids.
package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// ErrEmptyID is returned when a record is written without a key.
var ErrEmptyID = errors.New("track id is required")

// Store persists track records.
// Set overwrites any existing record for the id (last write wins).
// Get returns an empty record, not an error, for ids never stored.
// Each call is atomic on its own; callers do not coordinate.
type Store interface {
	Set(ctx context.Context, id string, rec track.Record) error
	Get(ctx context.Context, id string) (track.Record, error)
	Close() error
}
