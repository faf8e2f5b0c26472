package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type scheduleRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

// NewScheduleRepository serves employee schedules. DATE columns are mapped
// to midnight in loc, the site location shift-dates are built in.
func NewScheduleRepository(db *database.DB, loc *time.Location) schedule.Provider {
	return &scheduleRepositoryImpl{db: db, loc: loc}
}

const scheduleColumns = `id, employee_id, time_in, time_out, shift_type, workdays, grace_period_minutes,
	effective_from, effective_to, is_active, created_at, updated_at`

func (r *scheduleRepositoryImpl) scan(row pgx.Row) (schedule.EmployeeSchedule, error) {
	var (
		s               schedule.EmployeeSchedule
		timeIn, timeOut pgtype.Time
		workdays        []int32
		effectiveFrom   time.Time
		effectiveTo     *time.Time
	)
	err := row.Scan(&s.ID, &s.EmployeeID, &timeIn, &timeOut, &s.ShiftType, &workdays, &s.GracePeriodMinutes,
		&effectiveFrom, &effectiveTo, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return schedule.EmployeeSchedule{}, err
	}

	s.TimeIn = clockOf(timeIn)
	s.TimeOut = clockOf(timeOut)
	days := make([]int, 0, len(workdays))
	for _, d := range workdays {
		days = append(days, int(d))
	}
	s.Workdays = schedule.NewWeekdays(days...)
	s.EffectiveFrom = dateIn(effectiveFrom, r.loc)
	if effectiveTo != nil {
		to := dateIn(*effectiveTo, r.loc)
		s.EffectiveTo = &to
	}
	return s, nil
}

func clockOf(t pgtype.Time) schedule.Clock {
	return schedule.Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// dateIn keeps the calendar day of a scanned DATE and moves it to loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// GetByID implements schedule.Provider.
func (r *scheduleRepositoryImpl) GetByID(ctx context.Context, id string) (*schedule.EmployeeSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + ` FROM employee_schedules WHERE id = $1`

	s, err := r.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

// ActiveSchedule implements schedule.Provider.
func (r *scheduleRepositoryImpl) ActiveSchedule(ctx context.Context, employeeID string, date time.Time) (*schedule.EmployeeSchedule, error) {
	list, err := r.ListActive(ctx, employeeID, date, date)
	if err != nil {
		return nil, err
	}
	if s := schedule.NewLookup(list)(date); s != nil {
		return s, nil
	}
	return nil, schedule.ErrScheduleNotFound
}

// ListActive implements schedule.Provider.
func (r *scheduleRepositoryImpl) ListActive(ctx context.Context, employeeID string, from, to time.Time) ([]schedule.EmployeeSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + scheduleColumns + `
		FROM employee_schedules
		WHERE employee_id = $1
		  AND is_active
		  AND effective_from <= $3::date
		  AND (effective_to IS NULL OR effective_to >= $2::date)
		ORDER BY effective_from DESC, id
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.EmployeeSchedule
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// ScheduledEmployees implements schedule.Provider.
func (r *scheduleRepositoryImpl) ScheduledEmployees(ctx context.Context, from, to time.Time, siteID *string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT s.employee_id::text
		FROM employee_schedules s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.is_active
		  AND s.effective_from <= $2::date
		  AND (s.effective_to IS NULL OR s.effective_to >= $1::date)
		  AND ($3::text IS NULL OR e.site_id = $3)
		ORDER BY 1
	`

	rows, err := q.Query(ctx, query, from, to, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled employees: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
