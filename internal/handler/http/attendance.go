package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

type AttendanceHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	ReviewQueue(w http.ResponseWriter, r *http.Request)
	Reprocess(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
	coordinator       attendance.Coordinator
}

func NewAttendanceHandler(attendanceService attendance.Service, coordinator attendance.Coordinator) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		coordinator:       coordinator,
	}
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.attendanceService.Get(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Verify implements AttendanceHandler.
func (h *attendanceHandlerImpl) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req attendance.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode verify request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = id

	result, err := h.attendanceService.Verify(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record verified", result)
}

// ReviewQueue implements AttendanceHandler.
func (h *attendanceHandlerImpl) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	filter := attendance.ReviewQueueFilter{
		From:  queryString(r, "from"),
		To:    queryString(r, "to"),
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}

	result, err := h.attendanceService.ReviewQueue(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Reprocess implements AttendanceHandler.
func (h *attendanceHandlerImpl) Reprocess(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req attendance.ReprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode reprocess request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.coordinator.Reprocess(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance reprocessed", result)
}
