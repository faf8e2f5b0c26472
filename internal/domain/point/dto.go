package point

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type ExcuseRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason"`
}

func (r *ExcuseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: ErrExcuseReasonRequired.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

type CreateManualRequest struct {
	EmployeeID string          `json:"employee_id"`
	PointType  string          `json:"point_type"`
	Points     decimal.Decimal `json:"points"`
	ShiftDate  string          `json:"shift_date"` // YYYY-MM-DD
	Notes      *string         `json:"notes"`
}

func (r *CreateManualRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if !validator.IsInSlice(r.PointType, TypeValues) {
		errs = append(errs, validator.ValidationError{Field: "point_type", Message: ErrInvalidPointType.Error()})
	}
	if !r.Points.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "points", Message: ErrInvalidPointValue.Error()})
	}
	if _, ok := validator.IsValidDate(r.ShiftDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "shift_date", Message: "shift_date must be in YYYY-MM-DD format"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UpdateManualRequest struct {
	ID        string           `json:"-"`
	PointType *string          `json:"point_type"`
	Points    *decimal.Decimal `json:"points"`
	ShiftDate *string          `json:"shift_date"`
	Notes     *string          `json:"notes"`
}

func (r *UpdateManualRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if r.PointType != nil && !validator.IsInSlice(*r.PointType, TypeValues) {
		errs = append(errs, validator.ValidationError{Field: "point_type", Message: ErrInvalidPointType.Error()})
	}
	if r.Points != nil && !r.Points.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "points", Message: ErrInvalidPointValue.Error()})
	}
	if r.ShiftDate != nil {
		if _, ok := validator.IsValidDate(*r.ShiftDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "shift_date", Message: "shift_date must be in YYYY-MM-DD format"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListFilter struct {
	EmployeeID     string  `json:"-"`
	From           *string `json:"from,omitempty"`
	To             *string `json:"to,omitempty"`
	IncludeExpired bool    `json:"include_expired"`

	Page  int `json:"page"`
	Limit int `json:"limit"`

	FromDate *time.Time `json:"-"`
	ToDate   *time.Time `json:"-"`
	Now      time.Time  `json:"-"`
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{Field: "page", Message: "page must be a positive number"})
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "limit must be a positive number"})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "limit must not exceed 100"})
	}
	if f.From != nil && *f.From != "" {
		if d, ok := validator.IsValidDate(*f.From); ok {
			f.FromDate = &d
		} else {
			errs = append(errs, validator.ValidationError{Field: "from", Message: "from must be in YYYY-MM-DD format"})
		}
	}
	if f.To != nil && *f.To != "" {
		if d, ok := validator.IsValidDate(*f.To); ok {
			f.ToDate = &d
		} else {
			errs = append(errs, validator.ValidationError{Field: "to", Message: "to must be in YYYY-MM-DD format"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type StatisticsRequest struct {
	EmployeeID string `json:"-"`
	From       string `json:"from"` // YYYY-MM-DD
	To         string `json:"to"`   // YYYY-MM-DD
}

// Parse validates the request and returns the shift-date range.
func (r *StatisticsRequest) Parse() (from, to time.Time, err error) {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs = append(errs, validator.ValidationError{Field: "from", Message: "from must be in YYYY-MM-DD format"})
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "to must be in YYYY-MM-DD format"})
	}
	if okFrom && okTo && from.After(to) {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "to must not be before from"})
	}

	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}
	return from, to, nil
}

type PointResponse struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	AttendanceRecordID *string         `json:"attendance_record_id,omitempty"`
	PointType          string          `json:"point_type"`
	Points             decimal.Decimal `json:"points"`
	ShiftDate          string          `json:"shift_date"`
	IsManual           bool            `json:"is_manual"`
	ExpiresAt          string          `json:"expires_at"`
	IsExpired          bool            `json:"is_expired"`
	IsGBROEligible     bool            `json:"is_gbro_eligible"`
	IsExcused          bool            `json:"is_excused"`
	ExcusedBy          *string         `json:"excused_by,omitempty"`
	ExcuseReason       *string         `json:"excuse_reason,omitempty"`
	ExcusedAt          *string         `json:"excused_at,omitempty"`
	CreatedBy          *string         `json:"created_by,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

func NewPointResponse(p Point, now time.Time, policy Policy) PointResponse {
	var excusedAt *string
	if p.ExcusedAt != nil {
		s := p.ExcusedAt.Format(time.RFC3339)
		excusedAt = &s
	}
	return PointResponse{
		ID:                 p.ID,
		EmployeeID:         p.EmployeeID,
		AttendanceRecordID: p.AttendanceRecordID,
		PointType:          string(p.PointType),
		Points:             p.Points,
		ShiftDate:          p.ShiftDate.Format("2006-01-02"),
		IsManual:           p.IsManual,
		ExpiresAt:          p.ExpiresAt.Format(time.RFC3339),
		IsExpired:          p.IsExpired(now),
		IsGBROEligible:     p.IsGBROEligible(now, policy),
		IsExcused:          p.IsExcused,
		ExcusedBy:          p.ExcusedBy,
		ExcuseReason:       p.ExcuseReason,
		ExcusedAt:          excusedAt,
		CreatedBy:          p.CreatedBy,
		Notes:              p.Notes,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          p.UpdatedAt.Format(time.RFC3339),
	}
}

type ListPointResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Points     []PointResponse `json:"points"`
}

type StatisticsResponse struct {
	EmployeeID        string          `json:"employee_id"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	AsOf              string          `json:"as_of"`
	TotalPoints       decimal.Decimal `json:"total_points"`
	ActivePoints      decimal.Decimal `json:"active_points"`
	ExpiredPoints     decimal.Decimal `json:"expired_points"`
	ExcusedPoints     decimal.Decimal `json:"excused_points"`
	TotalCount        int             `json:"total_count"`
	ActiveCount       int             `json:"active_count"`
	ExpiredCount      int             `json:"expired_count"`
	ExcusedCount      int             `json:"excused_count"`
	CountByType       map[Type]int    `json:"count_by_type"`
	GBROEligibleCount int             `json:"gbro_eligible_count"`
}
