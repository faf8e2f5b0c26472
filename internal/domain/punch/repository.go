package punch

import (
	"context"
	"time"
)

// Repository is the append-only punch archive.
type Repository interface {
	// InsertBatch archives punches, ignoring exact duplicates of already
	// archived punches. It returns how many rows were actually inserted.
	InsertBatch(ctx context.Context, punches []PunchEvent) (int, error)

	// ListByEmployeeRange returns the employee's matched punches with
	// from <= punched_at < to, ordered by punched_at then id.
	ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]PunchEvent, error)

	// ListByUpload returns every punch first archived by the upload.
	ListByUpload(ctx context.Context, uploadID string) ([]PunchEvent, error)
}

type UploadRepository interface {
	Create(ctx context.Context, batch UploadBatch) (UploadBatch, error)
	GetByID(ctx context.Context, id string) (UploadBatch, error)

	// ClaimNext moves the oldest pending batch to processing and returns it.
	// A processing batch last touched before staleBefore is claimed again, so
	// a worker that died mid-run does not strand it. Concurrent workers never
	// claim the same batch. ErrNoPendingUpload when there is nothing to claim.
	ClaimNext(ctx context.Context, staleBefore time.Time) (UploadBatch, error)

	// Release returns a processing batch to pending.
	Release(ctx context.Context, id string) error

	// Finish records the terminal status and summary of a batch.
	Finish(ctx context.Context, id string, status UploadStatus, summary *IngestResult, errMsg *string) error
}
