package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	pointsvc "github.com/cmlabs-hris/hris-attendance-engine/internal/service/point"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-04 is a Monday.
var (
	monday  = date(2024, 3, 4)
	tuesday = date(2024, 3, 5)
	fixedAt = at(2024, 3, 10, 12, 0)
)

type pipeline struct {
	punches *memory.PunchRepository
	records *memory.AttendanceRepository
	points  *memory.PointRepository
	ingest  *IngestServiceImpl
}

func testSchedule(id, employeeID, in, out string, shiftType schedule.ShiftType) schedule.EmployeeSchedule {
	return schedule.EmployeeSchedule{
		ID:            id,
		EmployeeID:    employeeID,
		TimeIn:        schedule.MustClock(in),
		TimeOut:       schedule.MustClock(out),
		ShiftType:     shiftType,
		Workdays:      schedule.MondayToFriday,
		EffectiveFrom: date(2024, 1, 1),
		IsActive:      true,
	}
}

func newPipeline() *pipeline {
	dir := memory.NewDirectory(
		testEmployee("e-juan", "Juan Dela Cruz", "site-a"),
		testEmployee("e-rosa", "Rosa Lim", "site-a"),
		testEmployee("e-absent", "Absent Andy", "site-a"),
		testEmployee("e-night", "Night Owl", "site-a"),
		testEmployee("e-other", "Other Site", "site-b"),
		testEmployee("e-p1", "Pedro Cruz", "site-b"),
		testEmployee("e-p2", "Pedro Cruz", "site-c"),
	)
	schedules := memory.NewScheduleProvider(dir,
		testSchedule("s-juan", "e-juan", "09:00", "18:00", schedule.ShiftTypeRegular),
		testSchedule("s-rosa", "e-rosa", "22:00", "06:00", schedule.ShiftTypeGraveyard),
		testSchedule("s-absent", "e-absent", "09:00", "18:00", schedule.ShiftTypeRegular),
		testSchedule("s-night", "e-night", "00:00", "09:00", schedule.ShiftTypeGraveyard),
		testSchedule("s-other", "e-other", "09:00", "18:00", schedule.ShiftTypeRegular),
	)

	p := &pipeline{
		punches: memory.NewPunchRepository(),
		records: memory.NewAttendanceRepository(),
		points:  memory.NewPointRepository(),
	}
	engine := pointsvc.NewEngine(p.points, point.DefaultPolicy())
	coordinator := attendancesvc.NewCoordinator(memory.Transactor{}, p.records, p.punches, schedules, engine, auth.PermissionListAuthorizer{},
		attendancesvc.CoordinatorConfig{
			Workers:  2,
			Location: testLoc,
			Now:      func() time.Time { return fixedAt },
		})
	p.ingest = NewIngestService(memory.Transactor{}, p.punches, dir, schedules, coordinator, testLoc)
	return p
}

func (p *pipeline) run(t *testing.T, uploadID, raw string, from, to time.Time) punch.IngestResult {
	t.Helper()
	res, err := p.ingest.Ingest(context.Background(), punch.IngestRequest{
		UploadID:   uploadID,
		RawText:    raw,
		DateFrom:   from,
		DateTo:     to,
		SiteID:     "site-a",
		UploadedBy: "admin-1",
	})
	require.NoError(t, err)
	return res
}

func (p *pipeline) record(t *testing.T, employeeID string, shiftDate time.Time) attendance.Record {
	t.Helper()
	rec, err := p.records.GetByEmployeeDate(context.Background(), employeeID, shiftDate)
	require.NoError(t, err)
	require.NotNil(t, rec, "record for %s on %s", employeeID, shiftDate.Format("2006-01-02"))
	return *rec
}

var (
	mondayLog = lines(
		"1\tJuan Dela Cruz\t2024-03-04 09:15:00",
		"2\tJuan Dela Cruz\t2024-03-04 18:00:00",
		"3\tRosa Lim\t2024-03-04 21:55:00",
		"4\tGhost Person\t2024-03-04 08:00:00",
		"5\tGhost Person\t2024-03-04 08:01:00",
	)
	tuesdayLog = lines(
		"1\tRosa Lim\t2024-03-05 06:03:00",
	)
)

// ===== INGEST SERVICE TESTS =====

func TestIngestService_Ingest_Summary(t *testing.T) {
	p := newPipeline()

	res := p.run(t, "up-1", mondayLog, monday, monday)

	assert.Equal(t, "up-1", res.UploadID)
	assert.Equal(t, 5, res.TotalRecords)
	assert.Equal(t, 5, res.ArchivedCount)
	assert.Equal(t, 0, res.DuplicateCount)
	assert.Equal(t, 3, res.MatchedCount)
	assert.Equal(t, 2, res.UnmatchedCount)
	assert.Equal(t, []string{"Ghost Person"}, res.UnmatchedNames)
	assert.Empty(t, res.AmbiguousNames)
	assert.Empty(t, res.SkippedLines)
	assert.Empty(t, res.DateWarnings)

	// Monday for the four scheduled site-a employees; Sunday is not a workday.
	assert.Equal(t, 4, res.Reconcile.RecordsCreated)
	assert.Empty(t, res.Reconcile.FailedEmployees)

	juan := p.record(t, "e-juan", monday)
	assert.Equal(t, attendance.StatusTardy, juan.Status)
	assert.Equal(t, 15, juan.TardyMinutes)
	assert.Equal(t, 0, juan.UndertimeMinutes)

	rosa := p.record(t, "e-rosa", monday)
	assert.Equal(t, attendance.StatusFailedBioOut, rosa.Status)
	assert.True(t, rosa.NeedsReview)

	assert.Equal(t, attendance.StatusNoCallNoShow, p.record(t, "e-absent", monday).Status)

	other, err := p.records.GetByEmployeeDate(context.Background(), "e-other", monday)
	require.NoError(t, err)
	assert.Nil(t, other, "employees of other sites are not reconciled by this upload")
}

func TestIngestService_Ingest_UnmatchedNamesAreContained(t *testing.T) {
	p := newPipeline()

	res := p.run(t, "up-1", lines(mondayLog, "6\tPedro Cruz\t2024-03-04 09:00:00"), monday, monday)

	assert.Equal(t, []string{"Ghost Person"}, res.UnmatchedNames)
	assert.Equal(t, []string{"Pedro Cruz"}, res.AmbiguousNames)
	assert.Equal(t, 3, res.UnmatchedCount)

	archived, err := p.punches.ListByUpload(context.Background(), "up-1")
	require.NoError(t, err)
	require.Len(t, archived, 6, "unmatched punches are archived too")

	unmatched := 0
	for _, ev := range archived {
		if !ev.IsMatched() {
			unmatched++
		}
	}
	assert.Equal(t, 3, unmatched)

	for _, rec := range p.records.All() {
		assert.NotEqual(t, "e-p1", rec.EmployeeID)
		assert.NotEqual(t, "e-p2", rec.EmployeeID)
	}
}

func TestIngestService_Ingest_GraveyardCarryOverEitherOrder(t *testing.T) {
	orders := map[string][]string{
		"monday first":  {"monday", "tuesday"},
		"tuesday first": {"tuesday", "monday"},
	}
	results := map[string]attendance.Record{}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			p := newPipeline()
			for _, which := range order {
				if which == "monday" {
					p.run(t, "up-mon", mondayLog, monday, monday)
				} else {
					p.run(t, "up-tue", tuesdayLog, tuesday, tuesday)
				}
			}

			rosa := p.record(t, "e-rosa", monday)
			assert.Equal(t, attendance.StatusOnTime, rosa.Status)
			require.NotNil(t, rosa.ActualIn)
			require.NotNil(t, rosa.ActualOut)
			assert.True(t, rosa.ActualIn.Equal(at(2024, 3, 4, 21, 55)))
			assert.True(t, rosa.ActualOut.Equal(at(2024, 3, 5, 6, 3)))
			assert.Equal(t, 3, rosa.OvertimeMinutes)
			assert.False(t, rosa.NeedsReview)

			// Tuesday's own shift had no punches.
			assert.Equal(t, attendance.StatusNoCallNoShow, p.record(t, "e-rosa", tuesday).Status)

			results[name] = rosa
		})
	}

	require.Len(t, results, 2)
	assert.True(t, results["monday first"].SameComputed(results["tuesday first"]))
}

func TestIngestService_Ingest_MidnightBoundary(t *testing.T) {
	p := newPipeline()

	p.run(t, "up-1", lines(
		"1\tNight Owl\t2024-03-05 00:02:00",
		"2\tNight Owl\t2024-03-05 09:01:00",
	), tuesday, tuesday)

	rec := p.record(t, "e-night", monday)
	require.NotNil(t, rec.ActualIn)
	assert.True(t, rec.ActualIn.Equal(at(2024, 3, 5, 0, 2)), "a punch just after midnight is the arrival of the previous shift-date")
	assert.Equal(t, attendance.StatusTardy, rec.Status)
	assert.Equal(t, 2, rec.TardyMinutes)
	assert.Equal(t, 1, rec.OvertimeMinutes)
}

func TestIngestService_Ingest_Idempotent(t *testing.T) {
	p := newPipeline()

	p.run(t, "up-1", mondayLog, monday, monday)
	recordsBefore := p.records.All()
	pointsBefore := p.points.All()

	res := p.run(t, "up-2", mondayLog, monday, monday)

	assert.Equal(t, 0, res.ArchivedCount)
	assert.Equal(t, 5, res.DuplicateCount)
	assert.Equal(t, 0, res.Reconcile.RecordsCreated)
	assert.Equal(t, 0, res.Reconcile.RecordsUpdated)
	assert.Equal(t, 4, res.Reconcile.RecordsUnchanged)

	assert.Equal(t, recordsBefore, p.records.All())
	assert.Equal(t, pointsBefore, p.points.All())
}

func TestIngestService_Ingest_NoValidRecords(t *testing.T) {
	p := newPipeline()

	res, err := p.ingest.Ingest(context.Background(), punch.IngestRequest{
		RawText:    lines("1\tJuan\tgarbage", "2\tJuan"),
		DateFrom:   monday,
		DateTo:     monday,
		SiteID:     "site-a",
		UploadedBy: "admin-1",
	})

	assert.ErrorIs(t, err, punch.ErrNoValidRecords)
	assert.Len(t, res.SkippedLines, 2)
	assert.Empty(t, p.records.All())
}

func TestIngestService_Ingest_Validation(t *testing.T) {
	p := newPipeline()

	_, err := p.ingest.Ingest(context.Background(), punch.IngestRequest{
		RawText:  mondayLog,
		DateFrom: tuesday,
		DateTo:   monday,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site_id")
	assert.Contains(t, err.Error(), "date_range")
}
