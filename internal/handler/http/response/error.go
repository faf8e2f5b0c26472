package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoActor), errors.Is(err, user.ErrUnknownRole):
		Unauthorized(w, auth.ErrInvalidToken.Error())
	case errors.Is(err, auth.ErrForbidden):
		Forbidden(w, err.Error())

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Punch domain errors
	case errors.Is(err, punch.ErrUploadNotFound):
		NotFound(w, "Upload not found")
	case errors.Is(err, punch.ErrUploadTooLarge):
		PayloadTooLarge(w, err.Error())
	case errors.Is(err, punch.ErrEmptyPunchLog), errors.Is(err, punch.ErrNoValidRecords):
		BadRequest(w, err.Error(), nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrInvalidTimes), errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidDateRange), errors.Is(err, attendance.ErrReprocessRangeLimit):
		BadRequest(w, err.Error(), nil)

	// Point domain errors
	case errors.Is(err, point.ErrPointNotFound):
		NotFound(w, "Attendance point not found")
	case errors.Is(err, point.ErrSystemPointImmutable):
		Conflict(w, err.Error())
	case errors.Is(err, point.ErrPointAlreadyExcused), errors.Is(err, point.ErrPointNotExcused):
		Conflict(w, err.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
