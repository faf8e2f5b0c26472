package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
)

const day = 24 * time.Hour

// startDayOffset is 1 for a graveyard shift lying wholly after midnight
// (00:30-09:30 worked on the night after its shift-date), else 0.
func startDayOffset(s schedule.EmployeeSchedule) int {
	if s.ShiftType == schedule.ShiftTypeGraveyard && s.TimeIn < s.TimeOut {
		return 1
	}
	return 0
}

func endDayOffset(s schedule.EmployeeSchedule) int {
	offset := startDayOffset(s)
	if s.CrossesMidnight() {
		offset++
	}
	return offset
}

// Interval anchors the schedule to shiftDate: the scheduled check-in and checkout instants.
func Interval(s schedule.EmployeeSchedule, shiftDate time.Time) (start, end time.Time) {
	return s.TimeIn.On(shiftDate, startDayOffset(s)), s.TimeOut.On(shiftDate, endDayOffset(s))
}

// windowStart is where shiftDate's assignment window opens. Day shifts own
// their calendar day. Overnight shifts open halfway through the off-duty gap
// before check-in, so each punch goes to the nearer shift boundary.
func windowStart(s schedule.EmployeeSchedule, shiftDate time.Time) time.Time {
	if !s.IsGraveyard() {
		return schedule.DateOf(shiftDate)
	}
	start, _ := Interval(s, shiftDate)
	lead := (day - s.Length()) / 2
	return start.Add(-lead)
}

// Window is the half-open range of instants owned by shiftDate. Windows of
// consecutive shift-dates under one schedule tile the timeline.
func Window(s schedule.EmployeeSchedule, shiftDate time.Time) (from, to time.Time) {
	return windowStart(s, shiftDate), windowStart(s, schedule.AddDays(shiftDate, 1))
}

// AssignShiftDate returns the shift-date whose window contains ts. It
// reports false when that shift-date is not a workday. Shift-dates are
// built in ts's location, so ts must be expressed in the site location.
func AssignShiftDate(ts time.Time, s schedule.EmployeeSchedule) (time.Time, bool) {
	return assign(ts, func(time.Time) *schedule.EmployeeSchedule { return &s })
}

// assign resolves ts against the schedules effective on the neighbouring
// shift-dates. When windows of different schedules overlap (a rotation
// boundary) the shift whose interval lies closest to ts wins.
func assign(ts time.Time, lookup schedule.Lookup) (time.Time, bool) {
	shiftDate, s := resolve(ts, lookup)
	if s == nil || !s.IsWorkday(shiftDate) {
		return time.Time{}, false
	}
	return shiftDate, true
}

func resolve(ts time.Time, lookup schedule.Lookup) (time.Time, *schedule.EmployeeSchedule) {
	base := schedule.DateOf(ts)

	var bestDate time.Time
	var best *schedule.EmployeeSchedule
	var bestDist time.Duration
	for offset := -2; offset <= 1; offset++ {
		d := schedule.AddDays(base, offset)
		s := lookup(d)
		if s == nil {
			continue
		}
		from, to := Window(*s, d)
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		dist := distanceToInterval(ts, *s, d)
		if best == nil || dist < bestDist {
			bestDate, best, bestDist = d, s, dist
		}
	}
	return bestDate, best
}

func distanceToInterval(ts time.Time, s schedule.EmployeeSchedule, shiftDate time.Time) time.Duration {
	start, end := Interval(s, shiftDate)
	switch {
	case ts.Before(start):
		return start.Sub(ts)
	case ts.After(end):
		return ts.Sub(end)
	}
	return 0
}
