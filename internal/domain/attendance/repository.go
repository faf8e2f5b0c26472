package attendance

import (
	"context"
	"time"
)

// Repository stores reconciled attendance records, one per (employee, shift-date).
type Repository interface {
	// LockEmployee serializes reconciliation writers of one employee until
	// the surrounding transaction ends.
	LockEmployee(ctx context.Context, employeeID string) error

	// Upsert writes a reconciled record keyed by (employee_id, shift_date).
	// Admin-verified rows are left untouched and rows whose reconciled values
	// are unchanged are not rewritten.
	Upsert(ctx context.Context, record Record) (Record, UpsertOutcome, error)

	GetByID(ctx context.Context, id string) (Record, error)

	// GetByEmployeeDate returns nil without error when no record exists.
	GetByEmployeeDate(ctx context.Context, employeeID string, shiftDate time.Time) (*Record, error)

	ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error)

	// ListReviewQueue returns unverified records flagged for review, oldest shift first.
	ListReviewQueue(ctx context.Context, filter ReviewQueueFilter) ([]Record, int64, error)

	// SaveVerified overwrites a record with administrator-supplied values.
	SaveVerified(ctx context.Context, record Record) (Record, error)
}
