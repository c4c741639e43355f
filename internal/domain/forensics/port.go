package forensics

import (
	"context"
	"errors"
	"io"
)

var (
	ErrSampleMissing  = errors.New("sample file missing on server")
	ErrNoUpload       = errors.New("no file uploaded")
	ErrEmptyFilename  = errors.New("empty filename")
	ErrReportNotFound = errors.New("report not found")
)

// Runner port (interface untuk eksekusi satu command). Failures are
// returned inside the ToolResult, never as an error.
type Runner interface {
	Run(ctx context.Context, argv []string) ToolResult
}

// Repository port (interface untuk index laporan)
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	Latest(ctx context.Context, limit int) ([]*Report, error)
	Summary(ctx context.Context, sinceDays int) (Summary, error)
	Paginate(ctx context.Context, page, pageSize int) (PaginatedResult, error)
}

// UploadStore menyimpan file upload tanpa menimpa file lama
type UploadStore interface {
	// Save writes content under a collision-free version of name and
	// returns the absolute path and the final file name.
	Save(name string, content io.Reader) (path string, stored string, err error)
}

// ReportStore persists downloadable report documents.
type ReportStore interface {
	Write(name string, doc Document) (path string, err error)
	Open(name string) (io.ReadCloser, error)
}

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
