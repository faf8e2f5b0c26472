package schedule

import (
	"context"
	"time"
)

// Provider is the read-only schedule source consumed by the reconciliation engine.
// Schedules are created and edited elsewhere.
type Provider interface {
	// GetByID returns a schedule whether or not it is still active, or ErrScheduleNotFound.
	GetByID(ctx context.Context, id string) (*EmployeeSchedule, error)

	// ActiveSchedule returns the single schedule effective on date, or ErrScheduleNotFound.
	ActiveSchedule(ctx context.Context, employeeID string, date time.Time) (*EmployeeSchedule, error)

	// ListActive returns every active schedule of the employee overlapping [from, to].
	ListActive(ctx context.Context, employeeID string, from, to time.Time) ([]EmployeeSchedule, error)

	// ScheduledEmployees returns the IDs of employees with an active schedule
	// overlapping [from, to], optionally restricted to employees of one site.
	ScheduledEmployees(ctx context.Context, from, to time.Time, siteID *string) ([]string, error)
}
