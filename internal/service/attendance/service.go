package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.Repository
	schedules  schedule.Provider
	points     point.Syncer
	authorizer auth.Authorizer
	policy     Policy
	now        func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	records attendance.Repository,
	schedules schedule.Provider,
	points point.Syncer,
	authorizer auth.Authorizer,
	policy Policy,
) *AttendanceServiceImpl {
	return &AttendanceServiceImpl{
		tx:         tx,
		Repository: records,
		schedules:  schedules,
		points:     points,
		authorizer: authorizer,
		policy:     policy,
		now:        time.Now,
	}
}

// Verify implements attendance.Service. The correction, the recomputed
// minutes and the record's points are written together.
func (s *AttendanceServiceImpl) Verify(ctx context.Context, actor auth.Actor, req attendance.VerifyRequest) (attendance.RecordResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionAttendanceVerify); err != nil {
		return attendance.RecordResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	var saved attendance.Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.Repository.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}

		// Grace comes from the schedule the record was reconciled against.
		grace := 0
		sched, err := s.schedules.GetByID(ctx, rec.ScheduleID)
		switch {
		case err == nil:
			grace = sched.GracePeriodMinutes
		case !errors.Is(err, schedule.ErrScheduleNotFound):
			return fmt.Errorf("load schedule: %w", err)
		}

		if err := applyVerification(&rec, req, grace, s.policy.MaxOvertimeMinutes); err != nil {
			return err
		}
		now := s.now()
		verifiedBy := actor.UserID
		rec.AdminVerified = true
		rec.VerifiedBy = &verifiedBy
		rec.VerifiedAt = &now
		rec.VerificationNotes = req.Notes

		saved, err = s.Repository.SaveVerified(ctx, rec)
		if err != nil {
			return fmt.Errorf("save verified record: %w", err)
		}
		if _, err := s.points.Sync(ctx, saved); err != nil {
			return fmt.Errorf("sync points: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	slog.Info("Attendance verified", "record_id", saved.ID, "employee_id", saved.EmployeeID, "status", saved.Status, "verified_by", actor.UserID)
	return attendance.NewRecordResponse(saved), nil
}

// applyVerification replaces times and status and recomputes the minutes.
// Omitted times keep their current value; absence statuses clear them.
func applyVerification(rec *attendance.Record, req attendance.VerifyRequest, grace, maxOvertime int) error {
	status := attendance.Status(req.Status)

	if req.ActualIn != nil {
		in := *req.ActualIn
		rec.ActualIn = &in
	}
	if req.ActualOut != nil {
		out := *req.ActualOut
		rec.ActualOut = &out
	}
	if status == attendance.StatusAdvisedAbsence || status == attendance.StatusNoCallNoShow {
		rec.ActualIn, rec.ActualOut = nil, nil
	}
	if rec.ActualIn != nil && rec.ActualOut != nil && !rec.ActualOut.After(*rec.ActualIn) {
		return attendance.ErrInvalidTimes
	}

	m := ComputeMinutes(rec.ScheduledIn, rec.ScheduledOut, rec.ActualIn, rec.ActualOut, grace, maxOvertime)
	rec.TardyMinutes = m.Tardy
	rec.UndertimeMinutes = m.Undertime
	rec.OvertimeMinutes = m.Overtime
	rec.OvertimeCapped = m.OvertimeCapped

	if status == "" {
		status = DeriveStatus(rec.ActualIn, rec.ActualOut, m)
	}
	rec.Status = status
	rec.NeedsReview = false
	return nil
}

// Get implements attendance.Service. Employees may read their own records.
func (s *AttendanceServiceImpl) Get(ctx context.Context, actor auth.Actor, id string) (attendance.RecordResponse, error) {
	rec, err := s.Repository.GetByID(ctx, id)
	if err != nil {
		return attendance.RecordResponse{}, err
	}
	own := actor.EmployeeID != nil && *actor.EmployeeID == rec.EmployeeID
	if !own {
		if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionAttendanceView); err != nil {
			return attendance.RecordResponse{}, err
		}
	}
	return attendance.NewRecordResponse(rec), nil
}

// ReviewQueue implements attendance.Service.
func (s *AttendanceServiceImpl) ReviewQueue(ctx context.Context, actor auth.Actor, filter attendance.ReviewQueueFilter) (attendance.ListRecordResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionAttendanceView); err != nil {
		return attendance.ListRecordResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordResponse{}, err
	}

	records, total, err := s.Repository.ListReviewQueue(ctx, filter)
	if err != nil {
		return attendance.ListRecordResponse{}, fmt.Errorf("list review queue: %w", err)
	}

	resp := attendance.ListRecordResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Records:    make([]attendance.RecordResponse, 0, len(records)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, attendance.NewRecordResponse(r))
	}
	return resp, nil
}
