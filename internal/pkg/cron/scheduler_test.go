package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== SCHEDULER TESTS =====

func TestScheduler_Trigger_RunsJobBeforeInterval(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	ran := make(chan struct{}, 4)
	s.AddJob("job", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	})

	s.Start()
	defer s.Stop()

	waitRun(t, ran) // immediate run on start
	assert.True(t, s.Trigger("job"))
	waitRun(t, ran)
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_Trigger_UnknownJob(t *testing.T) {
	s := NewScheduler()
	assert.False(t, s.Trigger("missing"))
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	var runs int
	s.AddJob("a", time.Hour, func(ctx context.Context) error { runs++; return nil })
	s.AddJob("b", time.Hour, func(ctx context.Context) error { runs++; return assert.AnError })

	s.RunOnce(context.Background())

	assert.Equal(t, 2, runs)
}

func waitRun(t *testing.T, ran <-chan struct{}) {
	t.Helper()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

// ===== ATTENDANCE JOBS TESTS =====

type stubUploads struct {
	punch.UploadService
	processed int
}

func (s *stubUploads) ProcessPending(ctx context.Context) error {
	s.processed++
	return nil
}

type stubCoordinator struct {
	requests []attendance.ReconcileRequest
}

func (s *stubCoordinator) ReconcileRange(ctx context.Context, req attendance.ReconcileRequest) (attendance.ReconcileResult, error) {
	s.requests = append(s.requests, req)
	return attendance.ReconcileResult{EmployeesProcessed: 1}, nil
}

func (s *stubCoordinator) Reprocess(ctx context.Context, actor auth.Actor, req attendance.ReprocessRequest) (attendance.ReconcileResult, error) {
	return attendance.ReconcileResult{}, nil
}

func TestAttendanceJobs_CloseAttendanceDays(t *testing.T) {
	loc := time.FixedZone("PHT", 8*60*60)
	coordinator := &stubCoordinator{}
	jobs := NewAttendanceJobs(&stubUploads{}, coordinator, AttendanceJobsConfig{Location: loc, CloseHour: 1})

	jobs.now = func() time.Time { return time.Date(2024, 3, 10, 1, 30, 0, 0, loc) }
	require.NoError(t, jobs.CloseAttendanceDays(context.Background()))

	require.Len(t, coordinator.requests, 1)
	req := coordinator.requests[0]
	assert.True(t, req.From.Equal(time.Date(2024, 3, 8, 0, 0, 0, 0, loc)))
	assert.True(t, req.To.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, loc)))
	assert.Equal(t, attendance.TriggerSchedule, req.Trigger)
	assert.Empty(t, req.EmployeeIDs)
}

func TestAttendanceJobs_CloseAttendanceDays_OutsideCloseHour(t *testing.T) {
	loc := time.FixedZone("PHT", 8*60*60)
	coordinator := &stubCoordinator{}
	jobs := NewAttendanceJobs(&stubUploads{}, coordinator, AttendanceJobsConfig{Location: loc, CloseHour: 1})

	jobs.now = func() time.Time { return time.Date(2024, 3, 10, 14, 0, 0, 0, loc) }
	require.NoError(t, jobs.CloseAttendanceDays(context.Background()))

	assert.Empty(t, coordinator.requests)
}

func TestAttendanceJobs_IngestPendingUploads(t *testing.T) {
	uploads := &stubUploads{}
	jobs := NewAttendanceJobs(uploads, &stubCoordinator{}, AttendanceJobsConfig{})

	require.NoError(t, jobs.IngestPendingUploads(context.Background()))

	assert.Equal(t, 1, uploads.processed)
}
