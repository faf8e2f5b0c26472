package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type pointRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

func NewPointRepository(db *database.DB, loc *time.Location) point.Repository {
	return &pointRepositoryImpl{db: db, loc: loc}
}

const pointColumns = `id, employee_id, attendance_record_id, point_type, points, shift_date, is_manual, expires_at,
	is_excused, excused_by, excuse_reason, excused_at, created_by, notes, created_at, updated_at`

func (r *pointRepositoryImpl) scan(row pgx.Row) (point.Point, error) {
	var p point.Point
	err := row.Scan(&p.ID, &p.EmployeeID, &p.AttendanceRecordID, &p.PointType, &p.Points, &p.ShiftDate, &p.IsManual, &p.ExpiresAt,
		&p.IsExcused, &p.ExcusedBy, &p.ExcuseReason, &p.ExcusedAt, &p.CreatedBy, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return point.Point{}, err
	}
	p.ShiftDate = dateIn(p.ShiftDate, r.loc)
	p.ExpiresAt = p.ExpiresAt.In(r.loc)
	return p, nil
}

func (r *pointRepositoryImpl) getOne(ctx context.Context, query string, args ...any) (point.Point, error) {
	q := GetQuerier(ctx, r.db)

	p, err := r.scan(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return point.Point{}, point.ErrPointNotFound
		}
		return point.Point{}, err
	}
	return p, nil
}

// GetByID implements point.Repository.
func (r *pointRepositoryImpl) GetByID(ctx context.Context, id string) (point.Point, error) {
	p, err := r.getOne(ctx, `SELECT `+pointColumns+` FROM attendance_points WHERE id = $1`, id)
	if err != nil && !errors.Is(err, point.ErrPointNotFound) {
		return point.Point{}, fmt.Errorf("failed to get point by ID: %w", err)
	}
	return p, err
}

// GetByRecordID implements point.Repository.
func (r *pointRepositoryImpl) GetByRecordID(ctx context.Context, recordID string) (*point.Point, error) {
	p, err := r.getOne(ctx, `SELECT `+pointColumns+` FROM attendance_points WHERE attendance_record_id = $1`, recordID)
	if err != nil {
		if errors.Is(err, point.ErrPointNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get point by record: %w", err)
	}
	return &p, nil
}

// Create implements point.Repository.
func (r *pointRepositoryImpl) Create(ctx context.Context, p point.Point) (point.Point, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_points (
			id, employee_id, attendance_record_id, point_type, points, shift_date, is_manual, expires_at,
			is_excused, excused_by, excuse_reason, excused_at, created_by, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, p.EmployeeID, p.AttendanceRecordID, p.PointType, p.Points, p.ShiftDate, p.IsManual, p.ExpiresAt,
		p.IsExcused, p.ExcusedBy, p.ExcuseReason, p.ExcusedAt, p.CreatedBy, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return point.Point{}, fmt.Errorf("failed to create point: %w", err)
	}
	return p, nil
}

// Update implements point.Repository.
func (r *pointRepositoryImpl) Update(ctx context.Context, p point.Point) (point.Point, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_points
		SET point_type = $2, points = $3, shift_date = $4, expires_at = $5,
			is_excused = $6, excused_by = $7, excuse_reason = $8, excused_at = $9,
			notes = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, p.PointType, p.Points, p.ShiftDate, p.ExpiresAt,
		p.IsExcused, p.ExcusedBy, p.ExcuseReason, p.ExcusedAt, p.Notes,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return point.Point{}, point.ErrPointNotFound
		}
		return point.Point{}, fmt.Errorf("failed to update point: %w", err)
	}
	return p, nil
}

// Delete implements point.Repository.
func (r *pointRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendance_points WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return point.ErrPointNotFound
	}
	return nil
}

// SetExcuse implements point.Repository.
func (r *pointRepositoryImpl) SetExcuse(ctx context.Context, id, excusedBy, reason string, at time.Time) (point.Point, error) {
	query := `
		UPDATE attendance_points
		SET is_excused = TRUE, excused_by = $2, excuse_reason = $3, excused_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + pointColumns

	p, err := r.getOne(ctx, query, id, excusedBy, reason, at)
	if err != nil && !errors.Is(err, point.ErrPointNotFound) {
		return point.Point{}, fmt.Errorf("failed to excuse point: %w", err)
	}
	return p, err
}

// ClearExcuse implements point.Repository.
func (r *pointRepositoryImpl) ClearExcuse(ctx context.Context, id string) (point.Point, error) {
	query := `
		UPDATE attendance_points
		SET is_excused = FALSE, excused_by = NULL, excuse_reason = NULL, excused_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + pointColumns

	p, err := r.getOne(ctx, query, id)
	if err != nil && !errors.Is(err, point.ErrPointNotFound) {
		return point.Point{}, fmt.Errorf("failed to clear excuse: %w", err)
	}
	return p, err
}

// ListByEmployee implements point.Repository.
func (r *pointRepositoryImpl) ListByEmployee(ctx context.Context, filter point.ListFilter) ([]point.Point, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "employee_id = $1"
	args := []any{filter.EmployeeID}
	argIdx := 2

	if filter.FromDate != nil {
		where += fmt.Sprintf(" AND shift_date >= $%d", argIdx)
		args = append(args, *filter.FromDate)
		argIdx++
	}
	if filter.ToDate != nil {
		where += fmt.Sprintf(" AND shift_date <= $%d", argIdx)
		args = append(args, *filter.ToDate)
		argIdx++
	}
	if !filter.IncludeExpired {
		where += fmt.Sprintf(" AND expires_at > $%d", argIdx)
		args = append(args, filter.Now)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_points WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count points: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_points
		WHERE %s
		ORDER BY shift_date DESC, id
		LIMIT $%d OFFSET $%d
	`, pointColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list points: %w", err)
	}
	defer rows.Close()

	points := []point.Point{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, total, rows.Err()
}

// Statistics implements point.Repository. Excused points are reported as
// excused whether or not they have expired; GBRO eligibility counts active points only.
func (r *pointRepositoryImpl) Statistics(ctx context.Context, employeeID string, from, to, now time.Time, gbroTypes []point.Type) (point.Statistics, error) {
	q := GetQuerier(ctx, r.db)

	types := make([]string, 0, len(gbroTypes))
	for _, t := range gbroTypes {
		types = append(types, string(t))
	}

	query := `
		SELECT point_type,
			COALESCE(SUM(points), 0),
			COALESCE(SUM(points) FILTER (WHERE is_excused), 0),
			COALESCE(SUM(points) FILTER (WHERE NOT is_excused AND expires_at <= $4), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE is_excused),
			COUNT(*) FILTER (WHERE NOT is_excused AND expires_at <= $4),
			COUNT(*) FILTER (WHERE NOT is_excused AND expires_at > $4 AND point_type = ANY($5))
		FROM attendance_points
		WHERE employee_id = $1 AND shift_date BETWEEN $2 AND $3
		GROUP BY point_type
	`

	rows, err := q.Query(ctx, query, employeeID, from, to, now, types)
	if err != nil {
		return point.Statistics{}, fmt.Errorf("failed to aggregate points: %w", err)
	}
	defer rows.Close()

	stats := point.Statistics{
		EmployeeID:    employeeID,
		TotalPoints:   decimal.Zero,
		ActivePoints:  decimal.Zero,
		ExpiredPoints: decimal.Zero,
		ExcusedPoints: decimal.Zero,
		CountByType:   make(map[point.Type]int),
	}
	for rows.Next() {
		var (
			t                       point.Type
			total, excused, expired decimal.Decimal
			count, nExcused         int
			nExpired, nGBRO         int
		)
		if err := rows.Scan(&t, &total, &excused, &expired, &count, &nExcused, &nExpired, &nGBRO); err != nil {
			return point.Statistics{}, fmt.Errorf("failed to scan point statistics: %w", err)
		}

		stats.TotalPoints = stats.TotalPoints.Add(total)
		stats.ExcusedPoints = stats.ExcusedPoints.Add(excused)
		stats.ExpiredPoints = stats.ExpiredPoints.Add(expired)
		stats.ActivePoints = stats.ActivePoints.Add(total.Sub(excused).Sub(expired))
		stats.TotalCount += count
		stats.ExcusedCount += nExcused
		stats.ExpiredCount += nExpired
		stats.ActiveCount += count - nExcused - nExpired
		stats.GBROEligibleCount += nGBRO
		stats.CountByType[t] = count
	}
	return stats, rows.Err()
}
