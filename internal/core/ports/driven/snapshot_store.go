package driven

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// SnapshotStore persists the retrieval index between runs
type SnapshotStore interface {
	// Load reads the persisted snapshot.
	// Returns ErrNotFound when none exists and ErrCorruptSnapshot when it cannot be decoded.
	Load(ctx context.Context) (*domain.IndexSnapshot, error)

	// Save replaces the persisted snapshot atomically
	Save(ctx context.Context, snap *domain.IndexSnapshot) error

	// Location describes where the snapshot lives (for logs and status)
	Location() string
}
