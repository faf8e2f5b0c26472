package attendance

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
)

// Service exposes reconciled records to reviewers.
type Service interface {
	// Verify applies an administrator's correction and locks the record
	// against future reprocessing.
	Verify(ctx context.Context, actor auth.Actor, req VerifyRequest) (RecordResponse, error)

	Get(ctx context.Context, actor auth.Actor, id string) (RecordResponse, error)

	ReviewQueue(ctx context.Context, actor auth.Actor, filter ReviewQueueFilter) (ListRecordResponse, error)
}

// Coordinator re-derives records and points from the punch archive.
type Coordinator interface {
	ReconcileRange(ctx context.Context, req ReconcileRequest) (ReconcileResult, error)

	// Reprocess is the authorized entry point for an administrator re-run.
	Reprocess(ctx context.Context, actor auth.Actor, req ReprocessRequest) (ReconcileResult, error)
}
