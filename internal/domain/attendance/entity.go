package attendance

import (
	"time"
)

type Status string

const (
	StatusOnTime         Status = "on_time"
	StatusTardy          Status = "tardy"
	StatusUndertime      Status = "undertime"
	StatusTardyUndertime Status = "tardy_undertime"
	StatusNoCallNoShow   Status = "no_call_no_show"
	StatusFailedBioIn    Status = "failed_bio_in"  // only a checkout punch was found
	StatusFailedBioOut   Status = "failed_bio_out" // only a check-in punch was found
	StatusAdvisedAbsence Status = "advised_absence"
	StatusPendingReview  Status = "pending_review"
)

var StatusValues = []string{
	string(StatusOnTime),
	string(StatusTardy),
	string(StatusUndertime),
	string(StatusTardyUndertime),
	string(StatusNoCallNoShow),
	string(StatusFailedBioIn),
	string(StatusFailedBioOut),
	string(StatusAdvisedAbsence),
	string(StatusPendingReview),
}

func (s Status) IsValid() bool {
	for _, v := range StatusValues {
		if string(s) == v {
			return true
		}
	}
	return false
}

// Record is the reconciled attendance of one employee for one shift-date.
type Record struct {
	ID                string
	EmployeeID        string
	ShiftDate         time.Time
	ScheduleID        string
	ScheduledIn       time.Time
	ScheduledOut      time.Time
	ActualIn          *time.Time
	ActualOut         *time.Time
	Status            Status
	TardyMinutes      int
	UndertimeMinutes  int
	OvertimeMinutes   int
	OvertimeCapped    bool
	PunchCount        int
	NeedsReview       bool
	AdminVerified     bool
	VerifiedBy        *string
	VerifiedAt        *time.Time
	VerificationNotes *string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// DTO
	EmployeeName *string
}

// SameComputed reports whether two records carry the same reconciled values.
// Identity, audit and verification columns are ignored.
func (r Record) SameComputed(o Record) bool {
	return r.ScheduleID == o.ScheduleID &&
		r.ScheduledIn.Equal(o.ScheduledIn) &&
		r.ScheduledOut.Equal(o.ScheduledOut) &&
		equalTimePtr(r.ActualIn, o.ActualIn) &&
		equalTimePtr(r.ActualOut, o.ActualOut) &&
		r.Status == o.Status &&
		r.TardyMinutes == o.TardyMinutes &&
		r.UndertimeMinutes == o.UndertimeMinutes &&
		r.OvertimeMinutes == o.OvertimeMinutes &&
		r.OvertimeCapped == o.OvertimeCapped &&
		r.PunchCount == o.PunchCount &&
		r.NeedsReview == o.NeedsReview
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// UpsertOutcome is what a reconciliation write did to the stored row.
type UpsertOutcome string

const (
	OutcomeCreated         UpsertOutcome = "created"
	OutcomeUpdated         UpsertOutcome = "updated"
	OutcomeUnchanged       UpsertOutcome = "unchanged"
	OutcomeSkippedVerified UpsertOutcome = "skipped_verified"
)
