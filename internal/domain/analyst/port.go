package analyst

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Analysis, error)
	LatestByReport(ctx context.Context, reportID string) (*Analysis, error)
}
