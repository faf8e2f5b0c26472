package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
)

// Policy tunes reconciliation.
type Policy struct {
	// DuplicateWindow collapses repeated scans, e.g. an employee pressing twice.
	DuplicateWindow time.Duration
	// MaxOvertimeMinutes caps credited overtime; zero disables the cap.
	MaxOvertimeMinutes int
}

func DefaultPolicy() Policy {
	return Policy{
		DuplicateWindow:    2 * time.Minute,
		MaxOvertimeMinutes: 240,
	}
}

// Minutes are the lateness and overtime figures of a record.
type Minutes struct {
	Tardy          int
	Undertime      int
	Overtime       int
	OvertimeCapped bool
}

// ComputeMinutes derives minute fields from actual times against the
// schedule. Tardiness within the grace period counts as zero; beyond it the
// full lateness from the scheduled start is counted. Partial minutes are dropped.
func ComputeMinutes(scheduledIn, scheduledOut time.Time, actualIn, actualOut *time.Time, graceMinutes, maxOvertime int) Minutes {
	var m Minutes
	if actualIn != nil {
		if late := wholeMinutes(actualIn.Sub(scheduledIn)); late > graceMinutes {
			m.Tardy = late
		}
	}
	if actualOut != nil {
		m.Undertime = wholeMinutes(scheduledOut.Sub(*actualOut))
		m.Overtime = wholeMinutes(actualOut.Sub(scheduledOut))
		if maxOvertime > 0 && m.Overtime > maxOvertime {
			m.Overtime = maxOvertime
			m.OvertimeCapped = true
		}
	}
	return m
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// StatusFromMinutes is the status of a complete in/out pair.
func StatusFromMinutes(m Minutes) attendance.Status {
	switch {
	case m.Tardy > 0 && m.Undertime > 0:
		return attendance.StatusTardyUndertime
	case m.Tardy > 0:
		return attendance.StatusTardy
	case m.Undertime > 0:
		return attendance.StatusUndertime
	}
	return attendance.StatusOnTime
}

// DeriveStatus picks a status from whichever actual times are present.
func DeriveStatus(actualIn, actualOut *time.Time, m Minutes) attendance.Status {
	switch {
	case actualIn != nil && actualOut != nil:
		return StatusFromMinutes(m)
	case actualIn != nil:
		return attendance.StatusFailedBioOut
	case actualOut != nil:
		return attendance.StatusFailedBioIn
	}
	return attendance.StatusNoCallNoShow
}

// CollapseDuplicates drops punches within window of the previous kept punch.
// Input must be sorted.
func CollapseDuplicates(punches []punch.PunchEvent, window time.Duration) []punch.PunchEvent {
	if len(punches) == 0 {
		return nil
	}
	kept := []punch.PunchEvent{punches[0]}
	for _, p := range punches[1:] {
		if p.PunchedAt.Sub(kept[len(kept)-1].PunchedAt) <= window {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Reconcile turns one shift group into an attendance record. now decides
// whether the shift is still open: an open shift with punches is held for
// review and an open shift without punches yields no record (ok=false).
func Reconcile(g ShiftGroup, policy Policy, now time.Time) (attendance.Record, bool) {
	scheduledIn, scheduledOut := Interval(g.Schedule, g.ShiftDate)
	_, windowEnd := Window(g.Schedule, g.ShiftDate)
	open := now.Before(windowEnd)

	rec := attendance.Record{
		EmployeeID:   g.EmployeeID,
		ShiftDate:    g.ShiftDate,
		ScheduleID:   g.Schedule.ID,
		ScheduledIn:  scheduledIn,
		ScheduledOut: scheduledOut,
		PunchCount:   len(g.Punches),
	}

	sorted := make([]punch.PunchEvent, len(g.Punches))
	copy(sorted, g.Punches)
	SortPunches(sorted)
	kept := CollapseDuplicates(sorted, policy.DuplicateWindow)
	grace := g.Schedule.GracePeriodMinutes

	switch len(kept) {
	case 0:
		if open {
			return attendance.Record{}, false
		}
		rec.Status = attendance.StatusNoCallNoShow
		return rec, true

	case 1:
		t := kept[0].PunchedAt
		if absDuration(t.Sub(scheduledIn)) <= absDuration(t.Sub(scheduledOut)) {
			rec.ActualIn = &t
		} else {
			rec.ActualOut = &t
		}

	default:
		in, out := kept[0].PunchedAt, kept[len(kept)-1].PunchedAt
		rec.ActualIn, rec.ActualOut = &in, &out
	}

	m := ComputeMinutes(scheduledIn, scheduledOut, rec.ActualIn, rec.ActualOut, grace, policy.MaxOvertimeMinutes)
	rec.TardyMinutes = m.Tardy
	rec.UndertimeMinutes = m.Undertime
	rec.OvertimeMinutes = m.Overtime
	rec.OvertimeCapped = m.OvertimeCapped
	rec.Status = DeriveStatus(rec.ActualIn, rec.ActualOut, m)
	rec.NeedsReview = rec.ActualIn == nil || rec.ActualOut == nil

	if open {
		rec.Status = attendance.StatusPendingReview
		rec.NeedsReview = true
	}
	return rec, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
