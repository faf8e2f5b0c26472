package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.Repository {
	return &attendanceRepository{db: db, loc: loc}
}

const recordColumns = `
	a.id, a.employee_id, a.shift_date, a.schedule_id, a.scheduled_in, a.scheduled_out,
	a.actual_in, a.actual_out, a.status, a.tardy_minutes, a.undertime_minutes,
	a.overtime_minutes, a.overtime_capped, a.punch_count, a.needs_review,
	a.admin_verified, a.verified_by, a.verified_at, a.verification_notes,
	a.created_at, a.updated_at,
	e.full_name AS employee_name`

func (a *attendanceRepository) scan(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.ShiftDate, &rec.ScheduleID, &rec.ScheduledIn, &rec.ScheduledOut,
		&rec.ActualIn, &rec.ActualOut, &rec.Status, &rec.TardyMinutes, &rec.UndertimeMinutes,
		&rec.OvertimeMinutes, &rec.OvertimeCapped, &rec.PunchCount, &rec.NeedsReview,
		&rec.AdminVerified, &rec.VerifiedBy, &rec.VerifiedAt, &rec.VerificationNotes,
		&rec.CreatedAt, &rec.UpdatedAt,
		&rec.EmployeeName,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	rec.ShiftDate = dateIn(rec.ShiftDate, a.loc)
	rec.ScheduledIn = rec.ScheduledIn.In(a.loc)
	rec.ScheduledOut = rec.ScheduledOut.In(a.loc)
	if rec.ActualIn != nil {
		in := rec.ActualIn.In(a.loc)
		rec.ActualIn = &in
	}
	if rec.ActualOut != nil {
		out := rec.ActualOut.In(a.loc)
		rec.ActualOut = &out
	}
	return rec, nil
}

func (a *attendanceRepository) collect(rows pgx.Rows) ([]attendance.Record, error) {
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := a.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LockEmployee implements attendance.Repository. The advisory lock is
// transaction scoped, so it must run inside WithinTx.
func (a *attendanceRepository) LockEmployee(ctx context.Context, employeeID string) error {
	q := GetQuerier(ctx, a.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, employeeID); err != nil {
		return fmt.Errorf("failed to lock employee %s: %w", employeeID, err)
	}
	return nil
}

// Upsert implements attendance.Repository. Verified rows and rows whose
// reconciled values did not change are filtered by the conflict clause, so
// they are neither rewritten nor bumped.
func (a *attendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, attendance.UpsertOutcome, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records AS r (
			employee_id, shift_date, schedule_id, scheduled_in, scheduled_out, actual_in, actual_out,
			status, tardy_minutes, undertime_minutes, overtime_minutes, overtime_capped, punch_count, needs_review
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT ON CONSTRAINT attendance_records_employee_shift DO UPDATE SET
			schedule_id = EXCLUDED.schedule_id,
			scheduled_in = EXCLUDED.scheduled_in,
			scheduled_out = EXCLUDED.scheduled_out,
			actual_in = EXCLUDED.actual_in,
			actual_out = EXCLUDED.actual_out,
			status = EXCLUDED.status,
			tardy_minutes = EXCLUDED.tardy_minutes,
			undertime_minutes = EXCLUDED.undertime_minutes,
			overtime_minutes = EXCLUDED.overtime_minutes,
			overtime_capped = EXCLUDED.overtime_capped,
			punch_count = EXCLUDED.punch_count,
			needs_review = EXCLUDED.needs_review,
			updated_at = NOW()
		WHERE NOT r.admin_verified
		  AND (r.schedule_id, r.scheduled_in, r.scheduled_out, r.actual_in, r.actual_out, r.status,
		       r.tardy_minutes, r.undertime_minutes, r.overtime_minutes, r.overtime_capped,
		       r.punch_count, r.needs_review)
		      IS DISTINCT FROM
		      (EXCLUDED.schedule_id, EXCLUDED.scheduled_in, EXCLUDED.scheduled_out, EXCLUDED.actual_in,
		       EXCLUDED.actual_out, EXCLUDED.status, EXCLUDED.tardy_minutes, EXCLUDED.undertime_minutes,
		       EXCLUDED.overtime_minutes, EXCLUDED.overtime_capped, EXCLUDED.punch_count, EXCLUDED.needs_review)
		RETURNING r.id, r.created_at, r.updated_at, (r.xmax = 0) AS inserted
	`

	var inserted bool
	err := q.QueryRow(ctx, query,
		rec.EmployeeID,
		rec.ShiftDate,
		rec.ScheduleID,
		rec.ScheduledIn,
		rec.ScheduledOut,
		rec.ActualIn,
		rec.ActualOut,
		rec.Status,
		rec.TardyMinutes,
		rec.UndertimeMinutes,
		rec.OvertimeMinutes,
		rec.OvertimeCapped,
		rec.PunchCount,
		rec.NeedsReview,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &inserted)

	if err == nil {
		if inserted {
			return rec, attendance.OutcomeCreated, nil
		}
		return rec, attendance.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.Record{}, "", fmt.Errorf("failed to upsert attendance record: %w", err)
	}

	// The conflict clause filtered the row out.
	existing, err := a.GetByEmployeeDate(ctx, rec.EmployeeID, rec.ShiftDate)
	if err != nil {
		return attendance.Record{}, "", err
	}
	if existing == nil {
		return attendance.Record{}, "", fmt.Errorf("attendance record for %s on %s vanished during upsert", rec.EmployeeID, rec.ShiftDate.Format("2006-01-02"))
	}
	if existing.AdminVerified {
		return *existing, attendance.OutcomeSkippedVerified, nil
	}
	return *existing, attendance.OutcomeUnchanged, nil
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1
	`

	rec, err := a.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}
	return rec, nil
}

// GetByEmployeeDate implements attendance.Repository.
func (a *attendanceRepository) GetByEmployeeDate(ctx context.Context, employeeID string, shiftDate time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.employee_id = $1 AND a.shift_date = $2
	`

	rec, err := a.scan(q.QueryRow(ctx, query, employeeID, shiftDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No record for this shift yet
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}
	return &rec, nil
}

// ListByEmployeeRange implements attendance.Repository.
func (a *attendanceRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.employee_id = $1 AND a.shift_date BETWEEN $2 AND $3
		ORDER BY a.shift_date
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return a.collect(rows)
}

// ListReviewQueue implements attendance.Repository.
func (a *attendanceRepository) ListReviewQueue(ctx context.Context, filter attendance.ReviewQueueFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	where := "a.needs_review AND NOT a.admin_verified"
	args := []any{}
	argIdx := 1

	if filter.FromDate != nil {
		where += fmt.Sprintf(" AND a.shift_date >= $%d", argIdx)
		args = append(args, *filter.FromDate)
		argIdx++
	}
	if filter.ToDate != nil {
		where += fmt.Sprintf(" AND a.shift_date <= $%d", argIdx)
		args = append(args, *filter.ToDate)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM attendance_records a WHERE " + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count review queue: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY a.shift_date, a.employee_id
		LIMIT $%d OFFSET $%d
	`, recordColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list review queue: %w", err)
	}
	records, err := a.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return records, total, nil
}

// SaveVerified implements attendance.Repository.
func (a *attendanceRepository) SaveVerified(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET actual_in = $2,
			actual_out = $3,
			status = $4,
			tardy_minutes = $5,
			undertime_minutes = $6,
			overtime_minutes = $7,
			overtime_capped = $8,
			needs_review = $9,
			admin_verified = $10,
			verified_by = $11,
			verified_at = $12,
			verification_notes = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID,
		rec.ActualIn,
		rec.ActualOut,
		rec.Status,
		rec.TardyMinutes,
		rec.UndertimeMinutes,
		rec.OvertimeMinutes,
		rec.OvertimeCapped,
		rec.NeedsReview,
		rec.AdminVerified,
		rec.VerifiedBy,
		rec.VerifiedAt,
		rec.VerificationNotes,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to save verified attendance: %w", err)
	}
	return rec, nil
}
