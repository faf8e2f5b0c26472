package punch

import (
	"context"
	"io"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
)

// IngestService runs parse, match, archive and reconcile for one device log.
type IngestService interface {
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)
}

// UploadService accepts device logs and hands them to the background ingest job.
type UploadService interface {
	CreateUpload(ctx context.Context, actor auth.Actor, req CreateUploadRequest, content io.Reader) (UploadResponse, error)
	GetUpload(ctx context.Context, actor auth.Actor, id string) (UploadResponse, error)

	// ProcessPending ingests claimed batches; it is the body of the ingest job.
	ProcessPending(ctx context.Context) error
}
