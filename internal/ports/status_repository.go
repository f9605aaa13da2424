package ports

import (
	"context"

	"github.com/bft-labs/frameship/internal/domain"
)

// StatusRepository persists status reports for external monitoring.
type StatusRepository interface {
	// Load retrieves the last saved report.
	// Returns an empty report and nil error if none exists.
	Load(ctx context.Context) (domain.StatusReport, error)

	// Save persists the report atomically.
	Save(ctx context.Context, report domain.StatusReport) error
}
