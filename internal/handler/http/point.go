package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

type PointHandler interface {
	ListByEmployee(w http.ResponseWriter, r *http.Request)
	Statistics(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Excuse(w http.ResponseWriter, r *http.Request)
	Unexcuse(w http.ResponseWriter, r *http.Request)
}

type pointHandlerImpl struct {
	pointService point.Service
}

func NewPointHandler(pointService point.Service) PointHandler {
	return &pointHandlerImpl{
		pointService: pointService,
	}
}

// ListByEmployee implements PointHandler.
func (h *pointHandlerImpl) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	employeeID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	filter := point.ListFilter{
		EmployeeID:     employeeID,
		From:           queryString(r, "from"),
		To:             queryString(r, "to"),
		IncludeExpired: r.URL.Query().Get("include_expired") == "true",
		Page:           queryInt(r, "page"),
		Limit:          queryInt(r, "limit"),
	}

	result, err := h.pointService.ListByEmployee(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Points, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Statistics implements PointHandler.
func (h *pointHandlerImpl) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	employeeID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	req := point.StatisticsRequest{
		EmployeeID: employeeID,
		From:       r.URL.Query().Get("from"),
		To:         r.URL.Query().Get("to"),
	}

	result, err := h.pointService.Statistics(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Create implements PointHandler.
func (h *pointHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req point.CreateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode point request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.pointService.CreateManual(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance point created", result)
}

// Update implements PointHandler.
func (h *pointHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req point.UpdateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode point request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = id

	result, err := h.pointService.UpdateManual(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance point updated", result)
}

// Delete implements PointHandler.
func (h *pointHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.pointService.DeleteManual(r.Context(), actor, id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance point deleted", nil)
}

// Excuse implements PointHandler.
func (h *pointHandlerImpl) Excuse(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req point.ExcuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode excuse request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = id

	result, err := h.pointService.Excuse(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance point excused", result)
}

// Unexcuse implements PointHandler.
func (h *pointHandlerImpl) Unexcuse(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.pointService.Unexcuse(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance point excuse removed", result)
}
