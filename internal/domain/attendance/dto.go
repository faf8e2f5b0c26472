package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// MaxReprocessDays bounds one administrator-triggered reprocess run.
const MaxReprocessDays = 93

// ========================================
// VERIFY
// ========================================

type VerifyRequest struct {
	ID        string     `json:"-"`
	ActualIn  *time.Time `json:"actual_in"`
	ActualOut *time.Time `json:"actual_out"`
	Status    string     `json:"status"` // empty: derived from the corrected times
	Notes     *string    `json:"notes"`
}

func (r *VerifyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if r.Status != "" {
		if !Status(r.Status).IsValid() {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: ErrInvalidStatus.Error(),
			})
		} else if Status(r.Status) == StatusPendingReview {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "a verified record cannot be pending_review",
			})
		}
	}

	if r.ActualIn != nil && r.ActualOut != nil && !r.ActualOut.After(*r.ActualIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "actual_out",
			Message: ErrInvalidTimes.Error(),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// REVIEW QUEUE
// ========================================

type ReviewQueueFilter struct {
	From *string `json:"from,omitempty"` // YYYY-MM-DD
	To   *string `json:"to,omitempty"`   // YYYY-MM-DD

	Page  int `json:"page"`
	Limit int `json:"limit"`

	FromDate *time.Time `json:"-"`
	ToDate   *time.Time `json:"-"`
}

func (f *ReviewQueueFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.From != nil && *f.From != "" {
		if d, ok := validator.IsValidDate(*f.From); ok {
			f.FromDate = &d
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: "from must be in YYYY-MM-DD format",
			})
		}
	}
	if f.To != nil && *f.To != "" {
		if d, ok := validator.IsValidDate(*f.To); ok {
			f.ToDate = &d
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must be in YYYY-MM-DD format",
			})
		}
	}
	if f.FromDate != nil && f.ToDate != nil && f.FromDate.After(*f.ToDate) {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: ErrInvalidDateRange.Error(),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// RESPONSES
// ========================================

type RecordResponse struct {
	ID                string  `json:"id"`
	EmployeeID        string  `json:"employee_id"`
	EmployeeName      *string `json:"employee_name,omitempty"`
	ShiftDate         string  `json:"shift_date"`
	ScheduleID        string  `json:"schedule_id"`
	ScheduledIn       string  `json:"scheduled_in"`
	ScheduledOut      string  `json:"scheduled_out"`
	ActualIn          *string `json:"actual_in,omitempty"`
	ActualOut         *string `json:"actual_out,omitempty"`
	Status            string  `json:"status"`
	TardyMinutes      int     `json:"tardy_minutes"`
	UndertimeMinutes  int     `json:"undertime_minutes"`
	OvertimeMinutes   int     `json:"overtime_minutes"`
	OvertimeCapped    bool    `json:"overtime_capped"`
	PunchCount        int     `json:"punch_count"`
	NeedsReview       bool    `json:"needs_review"`
	AdminVerified     bool    `json:"admin_verified"`
	VerifiedBy        *string `json:"verified_by,omitempty"`
	VerifiedAt        *string `json:"verified_at,omitempty"`
	VerificationNotes *string `json:"verification_notes,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:                r.ID,
		EmployeeID:        r.EmployeeID,
		EmployeeName:      r.EmployeeName,
		ShiftDate:         r.ShiftDate.Format("2006-01-02"),
		ScheduleID:        r.ScheduleID,
		ScheduledIn:       r.ScheduledIn.Format(time.RFC3339),
		ScheduledOut:      r.ScheduledOut.Format(time.RFC3339),
		ActualIn:          timePtrToString(r.ActualIn),
		ActualOut:         timePtrToString(r.ActualOut),
		Status:            string(r.Status),
		TardyMinutes:      r.TardyMinutes,
		UndertimeMinutes:  r.UndertimeMinutes,
		OvertimeMinutes:   r.OvertimeMinutes,
		OvertimeCapped:    r.OvertimeCapped,
		PunchCount:        r.PunchCount,
		NeedsReview:       r.NeedsReview,
		AdminVerified:     r.AdminVerified,
		VerifiedBy:        r.VerifiedBy,
		VerifiedAt:        timePtrToString(r.VerifiedAt),
		VerificationNotes: r.VerificationNotes,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.Format(time.RFC3339),
	}
}

type ListRecordResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}

// ========================================
// RECONCILIATION
// ========================================

type Trigger string

const (
	TriggerIngest    Trigger = "ingest"
	TriggerReprocess Trigger = "reprocess"
	TriggerSchedule  Trigger = "schedule"
)

// ReconcileRequest selects the shift-dates [From, To] to re-derive.
// An empty EmployeeIDs targets every employee scheduled in the range,
// optionally narrowed to SiteID.
type ReconcileRequest struct {
	From        time.Time
	To          time.Time
	EmployeeIDs []string
	SiteID      *string
	Trigger     Trigger
}

type EmployeeFailure struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

type ReconcileResult struct {
	EmployeesProcessed int                      `json:"employees_processed"`
	RecordsCreated     int                      `json:"records_created"`
	RecordsUpdated     int                      `json:"records_updated"`
	RecordsUnchanged   int                      `json:"records_unchanged"`
	SkippedVerified    int                      `json:"skipped_verified"`
	PointsCreated      int                      `json:"points_created"`
	PointsUpdated      int                      `json:"points_updated"`
	PointsRemoved      int                      `json:"points_removed"`
	Unscheduled        []punch.UnscheduledPunch `json:"unscheduled_punches"`
	Failures           []EmployeeFailure        `json:"failures"`
}

// Merge folds another employee's result into r.
func (r *ReconcileResult) Merge(o ReconcileResult) {
	r.EmployeesProcessed += o.EmployeesProcessed
	r.RecordsCreated += o.RecordsCreated
	r.RecordsUpdated += o.RecordsUpdated
	r.RecordsUnchanged += o.RecordsUnchanged
	r.SkippedVerified += o.SkippedVerified
	r.PointsCreated += o.PointsCreated
	r.PointsUpdated += o.PointsUpdated
	r.PointsRemoved += o.PointsRemoved
	r.Unscheduled = append(r.Unscheduled, o.Unscheduled...)
	r.Failures = append(r.Failures, o.Failures...)
}

type ReprocessRequest struct {
	From        string   `json:"from"` // YYYY-MM-DD
	To          string   `json:"to"`   // YYYY-MM-DD
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// Parse validates the request and returns the shift-date range.
func (r *ReprocessRequest) Parse() (from, to time.Time, err error) {
	var errs validator.ValidationErrors

	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs = append(errs, validator.ValidationError{Field: "from", Message: "from must be in YYYY-MM-DD format"})
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "to must be in YYYY-MM-DD format"})
	}
	if okFrom && okTo {
		if from.After(to) {
			errs = append(errs, validator.ValidationError{Field: "to", Message: ErrInvalidDateRange.Error()})
		} else if to.Sub(from) > MaxReprocessDays*24*time.Hour {
			errs = append(errs, validator.ValidationError{Field: "to", Message: ErrReprocessRangeLimit.Error()})
		}
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "employee_ids must not contain empty values"})
			break
		}
	}

	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}
	return from, to, nil
}
