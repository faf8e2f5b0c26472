package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handlerTestSecret = "test-secret-key-for-jwt"
	recordID          = "0190a7c4-3b1e-7d2a-9f10-3c4d5e6f7a8b"
	pointID           = "0190a7c4-3b1e-7d2a-9f10-3c4d5e6f7a8c"
	employeeID        = "0190a7c4-3b1e-7d2a-9f10-3c4d5e6f7a8d"
)

type fakeUploadService struct {
	punch.UploadService
	createFn func(ctx context.Context, actor auth.Actor, req punch.CreateUploadRequest, content io.Reader) (punch.UploadResponse, error)
}

func (f *fakeUploadService) CreateUpload(ctx context.Context, actor auth.Actor, req punch.CreateUploadRequest, content io.Reader) (punch.UploadResponse, error) {
	return f.createFn(ctx, actor, req, content)
}

type fakeAttendanceService struct {
	attendance.Service
	getFn    func(ctx context.Context, actor auth.Actor, id string) (attendance.RecordResponse, error)
	verifyFn func(ctx context.Context, actor auth.Actor, req attendance.VerifyRequest) (attendance.RecordResponse, error)
}

func (f *fakeAttendanceService) Get(ctx context.Context, actor auth.Actor, id string) (attendance.RecordResponse, error) {
	return f.getFn(ctx, actor, id)
}

func (f *fakeAttendanceService) Verify(ctx context.Context, actor auth.Actor, req attendance.VerifyRequest) (attendance.RecordResponse, error) {
	return f.verifyFn(ctx, actor, req)
}

type fakeCoordinator struct {
	attendance.Coordinator
	reprocessFn func(ctx context.Context, actor auth.Actor, req attendance.ReprocessRequest) (attendance.ReconcileResult, error)
}

func (f *fakeCoordinator) Reprocess(ctx context.Context, actor auth.Actor, req attendance.ReprocessRequest) (attendance.ReconcileResult, error) {
	return f.reprocessFn(ctx, actor, req)
}

type fakePointService struct {
	point.Service
	excuseFn func(ctx context.Context, actor auth.Actor, req point.ExcuseRequest) (point.PointResponse, error)
}

func (f *fakePointService) Excuse(ctx context.Context, actor auth.Actor, req point.ExcuseRequest) (point.PointResponse, error) {
	return f.excuseFn(ctx, actor, req)
}

type routerFixture struct {
	jwt         jwt.Service
	uploads     *fakeUploadService
	attendance  *fakeAttendanceService
	coordinator *fakeCoordinator
	points      *fakePointService
	handler     http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		jwt:         jwt.NewJWTService(handlerTestSecret, "1h"),
		uploads:     &fakeUploadService{},
		attendance:  &fakeAttendanceService{},
		coordinator: &fakeCoordinator{},
		points:      &fakePointService{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.handler = NewRouter(
		RouterConfig{Logger: logger},
		f.jwt,
		NewUploadHandler(f.uploads, 1<<20),
		NewAttendanceHandler(f.attendance, f.coordinator),
		NewPointHandler(f.points),
	)
	return f
}

func (f *routerFixture) token(t *testing.T, role user.Role) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken("user-1", nil, role)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var body response.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// ===== AUTH MIDDLEWARE TESTS =====

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture()

	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/"+recordID, nil), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RejectsRevokedToken(t *testing.T) {
	f := newRouterFixture()
	token := f.token(t, user.RoleHR)
	f.jwt.RevokeToken(token)

	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/"+recordID, nil), token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PassesActorFromToken(t *testing.T) {
	f := newRouterFixture()
	var got auth.Actor
	f.attendance.getFn = func(ctx context.Context, actor auth.Actor, id string) (attendance.RecordResponse, error) {
		got = actor
		return attendance.RecordResponse{ID: id, Status: string(attendance.StatusTardy)}, nil
	}

	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/"+recordID, nil), f.token(t, user.RoleManager))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "user-1", got.UserID)
	assert.Contains(t, got.Permissions, auth.PermissionAttendanceVerify)
}

// ===== ATTENDANCE HANDLER TESTS =====

func TestAttendanceHandler_Get_InvalidID(t *testing.T) {
	f := newRouterFixture()

	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/not-a-uuid", nil), f.token(t, user.RoleHR))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}

func TestAttendanceHandler_Get_NotFound(t *testing.T) {
	f := newRouterFixture()
	f.attendance.getFn = func(ctx context.Context, actor auth.Actor, id string) (attendance.RecordResponse, error) {
		return attendance.RecordResponse{}, attendance.ErrRecordNotFound
	}

	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/"+recordID, nil), f.token(t, user.RoleHR))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestAttendanceHandler_Verify(t *testing.T) {
	f := newRouterFixture()
	var got attendance.VerifyRequest
	f.attendance.verifyFn = func(ctx context.Context, actor auth.Actor, req attendance.VerifyRequest) (attendance.RecordResponse, error) {
		got = req
		return attendance.RecordResponse{ID: req.ID, AdminVerified: true}, nil
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/attendance/"+recordID+"/verify",
		strings.NewReader(`{"actual_out":"2024-03-04T18:00:00+08:00","notes":"forgot to punch"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ := f.do(t, req, f.token(t, user.RoleManager))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, recordID, got.ID)
	require.NotNil(t, got.ActualOut)
	assert.Equal(t, 18, got.ActualOut.Hour())
	require.NotNil(t, got.Notes)
	assert.Equal(t, "forgot to punch", *got.Notes)
}

func TestAttendanceHandler_Verify_ValidationError(t *testing.T) {
	f := newRouterFixture()
	f.attendance.verifyFn = func(ctx context.Context, actor auth.Actor, req attendance.VerifyRequest) (attendance.RecordResponse, error) {
		return attendance.RecordResponse{}, validator.ValidationErrors{{Field: "status", Message: "invalid attendance status"}}
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/attendance/"+recordID+"/verify", strings.NewReader(`{"status":"sleeping"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := f.do(t, req, f.token(t, user.RoleManager))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid attendance status", body.Error.Details["status"])
}

func TestAttendanceHandler_Reprocess_Forbidden(t *testing.T) {
	f := newRouterFixture()
	f.coordinator.reprocessFn = func(ctx context.Context, actor auth.Actor, req attendance.ReprocessRequest) (attendance.ReconcileResult, error) {
		return attendance.ReconcileResult{}, auth.ErrForbidden
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/reprocess", strings.NewReader(`{"from":"2024-03-01","to":"2024-03-07"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := f.do(t, req, f.token(t, user.RoleEmployee))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

// ===== UPLOAD HANDLER TESTS =====

func TestUploadHandler_Create(t *testing.T) {
	f := newRouterFixture()
	var gotReq punch.CreateUploadRequest
	var gotContent string
	f.uploads.createFn = func(ctx context.Context, actor auth.Actor, req punch.CreateUploadRequest, content io.Reader) (punch.UploadResponse, error) {
		gotReq = req
		b, err := io.ReadAll(content)
		require.NoError(t, err)
		gotContent = string(b)
		return punch.UploadResponse{ID: "batch-1", Status: string(punch.UploadStatusPending)}, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("site_id", "site-a"))
	require.NoError(t, mw.WriteField("date_from", "2024-03-04"))
	require.NoError(t, mw.WriteField("date_to", "2024-03-08"))
	fw, err := mw.CreateFormFile("file", "GLG_001.TXT")
	require.NoError(t, err)
	_, err = fw.Write([]byte("1\tJuan Dela Cruz\t2024-03-04 09:15:00\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, body := f.do(t, req, f.token(t, user.RoleHR))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "site-a", gotReq.SiteID)
	assert.Equal(t, "2024-03-04", gotReq.DateFrom)
	assert.Equal(t, "GLG_001.TXT", gotReq.FileName)
	assert.Contains(t, gotContent, "Juan Dela Cruz")
}

func TestUploadHandler_Create_MissingFile(t *testing.T) {
	f := newRouterFixture()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("site_id", "site-a"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, _ := f.do(t, req, f.token(t, user.RoleHR))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ===== POINT HANDLER TESTS =====

func TestPointHandler_Excuse(t *testing.T) {
	f := newRouterFixture()
	var got point.ExcuseRequest
	f.points.excuseFn = func(ctx context.Context, actor auth.Actor, req point.ExcuseRequest) (point.PointResponse, error) {
		got = req
		return point.PointResponse{ID: req.ID, EmployeeID: employeeID, IsExcused: true}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/points/"+pointID+"/excuse", strings.NewReader(`{"reason":"hospital visit"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ := f.do(t, req, f.token(t, user.RoleManager))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pointID, got.ID)
	assert.Equal(t, "hospital visit", got.Reason)
}

func TestPointHandler_Excuse_AlreadyExcused(t *testing.T) {
	f := newRouterFixture()
	f.points.excuseFn = func(ctx context.Context, actor auth.Actor, req point.ExcuseRequest) (point.PointResponse, error) {
		return point.PointResponse{}, point.ErrPointAlreadyExcused
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/points/"+pointID+"/excuse", strings.NewReader(`{"reason":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := f.do(t, req, f.token(t, user.RoleManager))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", body.Error.Code)
}
