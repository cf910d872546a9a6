package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// AttachFunc stores the artefacts of a record once its id is known and
// returns the image path to persist. Returning an error aborts the append.
type AttachFunc func(id int64, ts time.Time) (imagePath string, err error)

// LogStore persists analysis records (SQLite or PostgreSQL).
// Records are append-only; only the resolution fields change afterwards.
type LogStore interface {
	// Append inserts a record and assigns its id. The record's Timestamp
	// must already be set. attach runs inside the same transaction, so the
	// row is only committed once the image is written.
	Append(ctx context.Context, rec *domain.LogRecord, attach AttachFunc) (int64, error)

	// SetResolved changes resolution state. resolvedAt is stored when
	// resolved is true and cleared otherwise. Unknown id returns ErrNotFound.
	SetResolved(ctx context.Context, id int64, resolved bool, resolvedAt time.Time) error

	// Get retrieves a record by id
	Get(ctx context.Context, id int64) (*domain.LogRecord, error)

	// List returns matching records, newest first
	List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error)

	// Ping checks the database connection
	Ping(ctx context.Context) error

	// Close releases the database handle
	Close() error
}
