package point

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, testLoc)

var (
	manager = auth.Actor{
		UserID:      "manager-1",
		Permissions: []auth.Permission{auth.PermissionPointView, auth.PermissionPointExcuse},
	}
	hr = auth.Actor{
		UserID:      "hr-1",
		Permissions: []auth.Permission{auth.PermissionPointView, auth.PermissionPointManage},
	}
)

type pointFixture struct {
	repo   *memory.PointRepository
	engine *Engine
	svc    *PointServiceImpl
}

func newPointFixture() *pointFixture {
	repo := memory.NewPointRepository()
	svc := NewPointService(memory.Transactor{}, repo, auth.PermissionListAuthorizer{}, point.DefaultPolicy(), testLoc)
	svc.now = func() time.Time { return fixedNow }
	return &pointFixture{
		repo:   repo,
		engine: NewEngine(repo, point.DefaultPolicy()),
		svc:    svc,
	}
}

// systemPoint syncs a tardy record and returns its point.
func (f *pointFixture) systemPoint(t *testing.T) point.Point {
	t.Helper()
	_, err := f.engine.Sync(context.Background(), record("r1", attendance.StatusTardy))
	require.NoError(t, err)
	p, err := f.repo.GetByRecordID(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, p)
	return *p
}

func (f *pointFixture) manualPoint(t *testing.T, shiftDate string) point.PointResponse {
	t.Helper()
	resp, err := f.svc.CreateManual(context.Background(), hr, point.CreateManualRequest{
		EmployeeID: "e1",
		PointType:  string(point.TypeOther),
		Points:     dec("1.5"),
		ShiftDate:  shiftDate,
	})
	require.NoError(t, err)
	return resp
}

// ===== EXCUSE TESTS =====

func TestPointService_Excuse_RoundTrip(t *testing.T) {
	f := newPointFixture()
	p := f.systemPoint(t)
	ctx := context.Background()

	resp, err := f.svc.Excuse(ctx, manager, point.ExcuseRequest{ID: p.ID, Reason: "  hospital visit  "})
	require.NoError(t, err)
	assert.True(t, resp.IsExcused)
	assert.False(t, resp.IsGBROEligible)
	require.NotNil(t, resp.ExcuseReason)
	assert.Equal(t, "hospital visit", *resp.ExcuseReason)
	require.NotNil(t, resp.ExcusedBy)
	assert.Equal(t, "manager-1", *resp.ExcusedBy)

	_, err = f.svc.Excuse(ctx, manager, point.ExcuseRequest{ID: p.ID, Reason: "again"})
	assert.ErrorIs(t, err, point.ErrPointAlreadyExcused)

	resp, err = f.svc.Unexcuse(ctx, manager, p.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsExcused)
	assert.Nil(t, resp.ExcuseReason)
	assert.True(t, resp.IsGBROEligible)

	_, err = f.svc.Unexcuse(ctx, manager, p.ID)
	assert.ErrorIs(t, err, point.ErrPointNotExcused)
}

func TestPointService_Excuse_Validation(t *testing.T) {
	f := newPointFixture()
	p := f.systemPoint(t)

	_, err := f.svc.Excuse(context.Background(), manager, point.ExcuseRequest{ID: p.ID, Reason: "   "})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "reason", verrs[0].Field)
	assert.False(t, f.repo.All()[0].IsExcused)
}

func TestPointService_Excuse_Forbidden(t *testing.T) {
	f := newPointFixture()
	p := f.systemPoint(t)

	_, err := f.svc.Excuse(context.Background(), hr, point.ExcuseRequest{ID: p.ID, Reason: "sick"})

	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPointService_Excuse_NotFound(t *testing.T) {
	f := newPointFixture()

	_, err := f.svc.Excuse(context.Background(), manager, point.ExcuseRequest{ID: "missing", Reason: "sick"})

	assert.ErrorIs(t, err, point.ErrPointNotFound)
}

// ===== MANUAL POINT TESTS =====

func TestPointService_CreateManual(t *testing.T) {
	f := newPointFixture()

	resp := f.manualPoint(t, "2024-03-04")

	assert.True(t, resp.IsManual)
	assert.Equal(t, string(point.TypeOther), resp.PointType)
	assertDecimal(t, "1.5", resp.Points)
	assert.Equal(t, "2024-03-04", resp.ShiftDate)
	assert.Equal(t, date(2024, 6, 2).Format(time.RFC3339), resp.ExpiresAt)
	require.NotNil(t, resp.CreatedBy)
	assert.Equal(t, "hr-1", *resp.CreatedBy)
	assert.Nil(t, resp.AttendanceRecordID)
}

func TestPointService_CreateManual_Validation(t *testing.T) {
	f := newPointFixture()

	_, err := f.svc.CreateManual(context.Background(), hr, point.CreateManualRequest{
		EmployeeID: "e1",
		PointType:  "sleeping",
		Points:     dec("0"),
		ShiftDate:  "March 4",
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
	assert.Empty(t, f.repo.All())
}

func TestPointService_CreateManual_Forbidden(t *testing.T) {
	f := newPointFixture()

	_, err := f.svc.CreateManual(context.Background(), manager, point.CreateManualRequest{
		EmployeeID: "e1",
		PointType:  string(point.TypeOther),
		Points:     dec("1"),
		ShiftDate:  "2024-03-04",
	})

	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPointService_UpdateManual(t *testing.T) {
	f := newPointFixture()
	manual := f.manualPoint(t, "2024-03-04")
	system := f.systemPoint(t)
	ctx := context.Background()

	value := dec("2")
	shiftDate := "2024-03-06"
	resp, err := f.svc.UpdateManual(ctx, hr, point.UpdateManualRequest{ID: manual.ID, Points: &value, ShiftDate: &shiftDate})
	require.NoError(t, err)
	assertDecimal(t, "2", resp.Points)
	assert.Equal(t, "2024-03-06", resp.ShiftDate)
	assert.Equal(t, date(2024, 6, 4).Format(time.RFC3339), resp.ExpiresAt)

	_, err = f.svc.UpdateManual(ctx, hr, point.UpdateManualRequest{ID: system.ID, Points: &value})
	assert.ErrorIs(t, err, point.ErrSystemPointImmutable)

	stored, err := f.repo.GetByID(ctx, system.ID)
	require.NoError(t, err)
	assertDecimal(t, "0.5", stored.Points)
}

func TestPointService_DeleteManual(t *testing.T) {
	f := newPointFixture()
	manual := f.manualPoint(t, "2024-03-04")
	system := f.systemPoint(t)
	ctx := context.Background()

	err := f.svc.DeleteManual(ctx, hr, system.ID)
	assert.ErrorIs(t, err, point.ErrSystemPointImmutable)

	require.NoError(t, f.svc.DeleteManual(ctx, hr, manual.ID))
	_, err = f.repo.GetByID(ctx, manual.ID)
	assert.ErrorIs(t, err, point.ErrPointNotFound)

	err = f.svc.DeleteManual(ctx, manager, system.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)
	assert.Len(t, f.repo.All(), 1)
}

// ===== READ TESTS =====

func seedPoints(t *testing.T, repo *memory.PointRepository) {
	t.Helper()
	ctx := context.Background()
	policy := point.DefaultPolicy()
	seed := []point.Point{
		{EmployeeID: "e1", PointType: point.TypeTardy, Points: dec("0.5"), ShiftDate: date(2024, 3, 4)},
		{EmployeeID: "e1", PointType: point.TypeNoCallNoShow, Points: dec("1"), ShiftDate: date(2023, 11, 1)},
		{EmployeeID: "e1", PointType: point.TypeTardyUndertime, Points: dec("1"), ShiftDate: date(2024, 3, 5), IsExcused: true},
		{EmployeeID: "e2", PointType: point.TypeTardy, Points: dec("0.5"), ShiftDate: date(2024, 3, 4)},
	}
	for _, p := range seed {
		p.ExpiresAt = policy.ExpiresAt(p.ShiftDate)
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
}

func TestPointService_ListByEmployee(t *testing.T) {
	f := newPointFixture()
	seedPoints(t, f.repo)
	ctx := context.Background()

	resp, err := f.svc.ListByEmployee(ctx, manager, point.ListFilter{EmployeeID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalCount)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, "2024-03-05", resp.Points[0].ShiftDate)
	assert.Equal(t, "2024-03-04", resp.Points[1].ShiftDate)

	resp, err = f.svc.ListByEmployee(ctx, manager, point.ListFilter{EmployeeID: "e1", IncludeExpired: true})
	require.NoError(t, err)
	require.Len(t, resp.Points, 3)
	assert.True(t, resp.Points[2].IsExpired)
	assert.False(t, resp.Points[2].IsGBROEligible)
}

func TestPointService_ListByEmployee_Visibility(t *testing.T) {
	f := newPointFixture()
	seedPoints(t, f.repo)
	ctx := context.Background()
	own, other := "e1", "e2"

	_, err := f.svc.ListByEmployee(ctx, auth.Actor{UserID: "u1", EmployeeID: &own}, point.ListFilter{EmployeeID: "e1"})
	assert.NoError(t, err)

	_, err = f.svc.ListByEmployee(ctx, auth.Actor{UserID: "u2", EmployeeID: &other}, point.ListFilter{EmployeeID: "e1"})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestPointService_Statistics(t *testing.T) {
	f := newPointFixture()
	seedPoints(t, f.repo)

	resp, err := f.svc.Statistics(context.Background(), manager, point.StatisticsRequest{
		EmployeeID: "e1",
		From:       "2023-10-01",
		To:         "2024-03-31",
	})

	require.NoError(t, err)
	assertDecimal(t, "2.5", resp.TotalPoints)
	assertDecimal(t, "0.5", resp.ActivePoints)
	assertDecimal(t, "1", resp.ExpiredPoints)
	assertDecimal(t, "1", resp.ExcusedPoints)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 1, resp.ActiveCount)
	assert.Equal(t, 1, resp.ExpiredCount)
	assert.Equal(t, 1, resp.ExcusedCount)
	assert.Equal(t, 1, resp.GBROEligibleCount)
	assert.Equal(t, 1, resp.CountByType[point.TypeNoCallNoShow])
	assert.Equal(t, fixedNow.Format(time.RFC3339), resp.AsOf)
}

func TestPointService_Statistics_Validation(t *testing.T) {
	f := newPointFixture()

	_, err := f.svc.Statistics(context.Background(), manager, point.StatisticsRequest{
		EmployeeID: "e1",
		From:       "2024-03-31",
		To:         "2024-03-01",
	})

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}
