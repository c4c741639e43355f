package failures

import (
	"context"
)

// Repository defines persistence for tool failures
type Repository interface {
	Save(ctx context.Context, f *ToolFailure) error
	ListByReport(ctx context.Context, reportID string, limit int) ([]*ToolFailure, error)
}
