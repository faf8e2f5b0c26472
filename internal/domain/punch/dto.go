package punch

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// LineDiagnostic describes a skipped line of a punch log.
type LineDiagnostic struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// DateWarning flags a punch dated outside the upload's declared range. The punch is kept.
type DateWarning struct {
	Line       int       `json:"line"`
	DeviceName string    `json:"device_name"`
	PunchedAt  time.Time `json:"punched_at"`
}

// UnscheduledPunch is a matched punch with no workday shift to attach to.
type UnscheduledPunch struct {
	EmployeeID string    `json:"employee_id"`
	PunchedAt  time.Time `json:"punched_at"`
	Reason     string    `json:"reason"`
}

// ParseResult is the output of the record parser.
type ParseResult struct {
	Records      []RawPunch
	Skipped      []LineDiagnostic
	DateWarnings []DateWarning
}

type IngestRequest struct {
	UploadID   string
	RawText    string
	DateFrom   time.Time
	DateTo     time.Time
	SiteID     string
	UploadedBy string
}

func (r *IngestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SiteID) {
		errs = append(errs, validator.ValidationError{
			Field:   "site_id",
			Message: ErrSiteRequired.Error(),
		})
	}
	if r.DateFrom.IsZero() || r.DateTo.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "date_range",
			Message: "date_from and date_to are required",
		})
	} else if r.DateFrom.After(r.DateTo) {
		errs = append(errs, validator.ValidationError{
			Field:   "date_range",
			Message: ErrInvalidDateRange.Error(),
		})
	}
	if validator.IsEmpty(r.UploadedBy) {
		errs = append(errs, validator.ValidationError{
			Field:   "uploaded_by",
			Message: "uploaded_by is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReconcileSummary is the slice of a reconciliation run reported back with an upload.
type ReconcileSummary struct {
	RecordsCreated   int      `json:"records_created"`
	RecordsUpdated   int      `json:"records_updated"`
	RecordsUnchanged int      `json:"records_unchanged"`
	SkippedVerified  int      `json:"skipped_verified"`
	FailedEmployees  []string `json:"failed_employees,omitempty"`
}

// IngestResult is the summary returned to the uploader and stored with the batch.
type IngestResult struct {
	UploadID           string             `json:"upload_id"`
	TotalRecords       int                `json:"total_records"`
	ArchivedCount      int                `json:"archived_count"`
	DuplicateCount     int                `json:"duplicate_count"`
	MatchedCount       int                `json:"matched_count"`
	UnmatchedCount     int                `json:"unmatched_count"`
	UnmatchedNames     []string           `json:"unmatched_names"`
	AmbiguousNames     []string           `json:"ambiguous_names"`
	DateWarnings       []DateWarning      `json:"date_warnings"`
	SkippedLines       []LineDiagnostic   `json:"skipped_lines"`
	UnscheduledPunches []UnscheduledPunch `json:"unscheduled_punches"`
	Reconcile          ReconcileSummary   `json:"reconcile"`
}

// CreateUploadRequest is what the upload adapter hands to the upload service.
type CreateUploadRequest struct {
	SiteID   string
	DateFrom string // YYYY-MM-DD
	DateTo   string // YYYY-MM-DD
	FileName string
	Size     int64
}

func (r *CreateUploadRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SiteID) {
		errs = append(errs, validator.ValidationError{Field: "site_id", Message: ErrSiteRequired.Error()})
	}
	from, okFrom := validator.IsValidDate(r.DateFrom)
	if !okFrom {
		errs = append(errs, validator.ValidationError{Field: "date_from", Message: "date_from must be YYYY-MM-DD"})
	}
	to, okTo := validator.IsValidDate(r.DateTo)
	if !okTo {
		errs = append(errs, validator.ValidationError{Field: "date_to", Message: "date_to must be YYYY-MM-DD"})
	}
	if okFrom && okTo && from.After(to) {
		errs = append(errs, validator.ValidationError{Field: "date_to", Message: ErrInvalidDateRange.Error()})
	}
	if r.Size <= 0 {
		errs = append(errs, validator.ValidationError{Field: "file", Message: ErrEmptyPunchLog.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UploadResponse struct {
	ID          string        `json:"id"`
	SiteID      string        `json:"site_id"`
	DateFrom    string        `json:"date_from"`
	DateTo      string        `json:"date_to"`
	UploadedBy  string        `json:"uploaded_by"`
	Status      string        `json:"status"`
	Summary     *IngestResult `json:"summary,omitempty"`
	Error       *string       `json:"error,omitempty"`
	CreatedAt   string        `json:"created_at"`
	ProcessedAt *string       `json:"processed_at,omitempty"`
}
