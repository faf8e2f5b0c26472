package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
)

const (
	JobIngestUploads    = "ingest_punch_uploads"
	JobCloseAttendances = "close_attendance_days"
)

type AttendanceJobsConfig struct {
	IngestInterval time.Duration
	Location       *time.Location
	// CloseHour is the local hour at which the previous days are swept.
	CloseHour int
	// CloseDays is how many past shift-dates each sweep re-derives.
	CloseDays int
}

type AttendanceJobs struct {
	uploads     punch.UploadService
	coordinator attendance.Coordinator
	config      AttendanceJobsConfig
	now         func() time.Time
}

func NewAttendanceJobs(uploads punch.UploadService, coordinator attendance.Coordinator, cfg AttendanceJobsConfig) *AttendanceJobs {
	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CloseDays <= 0 {
		cfg.CloseDays = 2
	}
	return &AttendanceJobs{
		uploads:     uploads,
		coordinator: coordinator,
		config:      cfg,
		now:         time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(JobIngestUploads, j.config.IngestInterval, j.IngestPendingUploads)
	scheduler.AddJob(JobCloseAttendances, 1*time.Hour, j.CloseAttendanceDays)
}

// IngestPendingUploads processes queued punch logs.
func (j *AttendanceJobs) IngestPendingUploads(ctx context.Context) error {
	return j.uploads.ProcessPending(ctx)
}

// CloseAttendanceDays re-derives the last few shift-dates for every
// scheduled employee, so windows that closed without any upload still turn
// into no-call-no-show records.
func (j *AttendanceJobs) CloseAttendanceDays(ctx context.Context) error {
	now := j.now().In(j.config.Location)
	if now.Hour() != j.config.CloseHour {
		return nil
	}

	today := schedule.DateOf(now)
	from := schedule.AddDays(today, -j.config.CloseDays)
	to := schedule.AddDays(today, -1)

	slog.Info("Cron: Starting attendance close job", "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	result, err := j.coordinator.ReconcileRange(ctx, attendance.ReconcileRequest{
		From:    from,
		To:      to,
		Trigger: attendance.TriggerSchedule,
	})
	if err != nil {
		return fmt.Errorf("failed to close attendance days: %w", err)
	}

	slog.Info("Cron: Attendance close job completed",
		"employees", result.EmployeesProcessed,
		"created", result.RecordsCreated,
		"updated", result.RecordsUpdated,
		"failures", len(result.Failures),
	)
	return nil
}
