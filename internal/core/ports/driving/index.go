package driving

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// IndexService answers manual retrieval queries and manages the live index
type IndexService interface {
	// Search returns up to topK passages, most relevant first
	Search(ctx context.Context, query string, topK int) ([]domain.RetrievedSource, error)

	// Rebuild re-reads the corpus, persists a new snapshot and swaps it in
	Rebuild(ctx context.Context) (*domain.IndexStatus, error)

	// Status describes the live index
	Status() domain.IndexStatus
}
