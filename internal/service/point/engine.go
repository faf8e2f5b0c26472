package point

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/google/uuid"
)

// TypeForStatus maps a record status to the point type it may accrue.
func TypeForStatus(s attendance.Status) (point.Type, bool) {
	switch s {
	case attendance.StatusTardy:
		return point.TypeTardy, true
	case attendance.StatusUndertime:
		return point.TypeUndertime, true
	case attendance.StatusTardyUndertime:
		return point.TypeTardyUndertime, true
	case attendance.StatusNoCallNoShow:
		return point.TypeNoCallNoShow, true
	case attendance.StatusFailedBioIn:
		return point.TypeFailedBioIn, true
	case attendance.StatusFailedBioOut:
		return point.TypeFailedBioOut, true
	}
	return "", false
}

// Engine keeps system points in line with attendance records.
type Engine struct {
	repo   point.Repository
	policy point.Policy
}

func NewEngine(repo point.Repository, policy point.Policy) *Engine {
	return &Engine{repo: repo, policy: policy}
}

// Derive returns the system point a record should carry, if any.
func (e *Engine) Derive(rec attendance.Record) (point.Point, bool) {
	t, ok := TypeForStatus(rec.Status)
	if !ok {
		return point.Point{}, false
	}
	value := e.policy.Value(t)
	if !value.IsPositive() {
		return point.Point{}, false
	}
	recordID := rec.ID
	return point.Point{
		EmployeeID:         rec.EmployeeID,
		AttendanceRecordID: &recordID,
		PointType:          t,
		Points:             value,
		ShiftDate:          rec.ShiftDate,
		ExpiresAt:          e.policy.ExpiresAt(rec.ShiftDate),
	}, true
}

// Sync implements point.Syncer. It runs inside the caller's transaction.
// An excuse survives as long as the point type stays the same.
func (e *Engine) Sync(ctx context.Context, rec attendance.Record) (point.SyncOutcome, error) {
	existing, err := e.repo.GetByRecordID(ctx, rec.ID)
	if err != nil {
		return point.SyncNone, fmt.Errorf("get point for record %s: %w", rec.ID, err)
	}
	want, ok := e.Derive(rec)

	switch {
	case !ok && existing == nil:
		return point.SyncNone, nil

	case !ok:
		if err := e.repo.Delete(ctx, existing.ID); err != nil {
			return point.SyncNone, fmt.Errorf("remove point %s: %w", existing.ID, err)
		}
		return point.SyncRemoved, nil

	case existing == nil:
		id, err := uuid.NewV7()
		if err != nil {
			return point.SyncNone, fmt.Errorf("generate point id: %w", err)
		}
		want.ID = id.String()
		if _, err := e.repo.Create(ctx, want); err != nil {
			return point.SyncNone, fmt.Errorf("create point: %w", err)
		}
		return point.SyncCreated, nil
	}

	if existing.PointType == want.PointType &&
		existing.Points.Equal(want.Points) &&
		sameDay(existing.ShiftDate, want.ShiftDate) &&
		existing.ExpiresAt.Equal(want.ExpiresAt) {
		return point.SyncUnchanged, nil
	}

	updated := *existing
	if updated.PointType != want.PointType {
		updated.IsExcused = false
		updated.ExcusedBy = nil
		updated.ExcuseReason = nil
		updated.ExcusedAt = nil
	}
	updated.PointType = want.PointType
	updated.Points = want.Points
	updated.ShiftDate = want.ShiftDate
	updated.ExpiresAt = want.ExpiresAt
	if _, err := e.repo.Update(ctx, updated); err != nil {
		return point.SyncNone, fmt.Errorf("update point %s: %w", existing.ID, err)
	}
	return point.SyncUpdated, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
