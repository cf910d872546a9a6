package driven

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// CorpusSource provides the maintenance manuals to index
type CorpusSource interface {
	// Documents returns every readable manual, sorted by name,
	// with pages in reading order
	Documents(ctx context.Context) ([]domain.SourceDocument, error)

	// Root describes where the manuals come from
	Root() string
}

// TextExtractor pulls per-page text out of a binary document format
type TextExtractor interface {
	// Extract returns the pages of the file at path
	Extract(ctx context.Context, path string) ([]string, error)

	// Extensions lists the lower-case file extensions handled, with leading dot
	Extensions() []string
}
