package point

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Point, error)

	// GetByRecordID returns the system point of an attendance record, or nil.
	GetByRecordID(ctx context.Context, recordID string) (*Point, error)

	Create(ctx context.Context, p Point) (Point, error)

	// Update rewrites type, value, dates and notes. Excuse columns are written as given.
	Update(ctx context.Context, p Point) (Point, error)

	Delete(ctx context.Context, id string) error

	SetExcuse(ctx context.Context, id, excusedBy, reason string, at time.Time) (Point, error)

	// ClearExcuse resets every excuse column in a single write.
	ClearExcuse(ctx context.Context, id string) (Point, error)

	ListByEmployee(ctx context.Context, filter ListFilter) ([]Point, int64, error)

	// Statistics aggregates points with from <= shift_date <= to; expiry is judged at now.
	Statistics(ctx context.Context, employeeID string, from, to, now time.Time, gbroTypes []Type) (Statistics, error)
}
