package driving

import (
	"context"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// LogService records analyses and serves the reporting dashboard
type LogService interface {
	// Record persists one completed analysis together with its image.
	// responseJSON is the exact body returned to the client.
	Record(ctx context.Context, req domain.AnalyzeRequest, resp *domain.AnalyzeResponse, responseJSON []byte) (*domain.LogRecord, error)

	// Get retrieves a single record
	Get(ctx context.Context, id int64) (*domain.LogRecord, error)

	// List returns filtered records, newest first
	List(ctx context.Context, filter domain.LogFilter) ([]*domain.LogRecord, error)

	// Report aggregates the filtered records
	Report(ctx context.Context, filter domain.LogFilter) (*domain.LogReport, error)

	// Overdue lists NG records left unresolved for more than two days
	Overdue(ctx context.Context) ([]*domain.LogRecord, error)

	// Resolve marks a record resolved, refreshing its resolution time
	Resolve(ctx context.Context, id int64) (*domain.LogRecord, error)

	// Unresolve reopens a record and clears its resolution time
	Unresolve(ctx context.Context, id int64) (*domain.LogRecord, error)
}
