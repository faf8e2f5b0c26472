package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type ShiftType string

const (
	ShiftTypeRegular   ShiftType = "regular"
	ShiftTypeGraveyard ShiftType = "graveyard" // shift keyed to the day before its after-midnight start
)

var ShiftTypeValues = []string{
	string(ShiftTypeRegular),
	string(ShiftTypeGraveyard),
}

// Clock is a time of day expressed in minutes since midnight (0..1439).
type Clock int

const minutesPerDay = 24 * 60

// ParseClock accepts "15:04" or "15:04:05". Seconds are dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

// MustClock panics on invalid input. Intended for fixtures and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On anchors the clock to a calendar date plus a day offset, in the date's location.
func (c Clock) On(date time.Time, dayOffset int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day()+dayOffset, c.Hour(), c.Minute(), 0, 0, date.Location())
}

// Weekdays is a set of ISO weekdays (1=Monday, ..., 7=Sunday), one bit each.
type Weekdays uint8

func NewWeekdays(isoDays ...int) Weekdays {
	var w Weekdays
	for _, d := range isoDays {
		if d >= 1 && d <= 7 {
			w |= 1 << uint(d)
		}
	}
	return w
}

// MondayToFriday is the common five-day pattern.
var MondayToFriday = NewWeekdays(1, 2, 3, 4, 5)

func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(isoWeekday(d))) != 0
}

// ISO returns the set as sorted ISO weekday numbers, the form stored in the database.
func (w Weekdays) ISO() []int32 {
	days := make([]int32, 0, 7)
	for d := 1; d <= 7; d++ {
		if w&(1<<uint(d)) != 0 {
			days = append(days, int32(d))
		}
	}
	return days
}

// EmployeeSchedule is one employee's expected work pattern.
type EmployeeSchedule struct {
	ID                 string
	EmployeeID         string
	TimeIn             Clock
	TimeOut            Clock
	ShiftType          ShiftType
	Workdays           Weekdays
	GracePeriodMinutes int
	EffectiveFrom      time.Time
	EffectiveTo        *time.Time
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CrossesMidnight reports whether the checkout clock is at or before the check-in clock.
func (s EmployeeSchedule) CrossesMidnight() bool {
	return s.TimeOut <= s.TimeIn
}

// IsGraveyard covers both explicit graveyard schedules and any schedule crossing midnight.
func (s EmployeeSchedule) IsGraveyard() bool {
	return s.ShiftType == ShiftTypeGraveyard || s.CrossesMidnight()
}

// Length is the scheduled shift duration.
func (s EmployeeSchedule) Length() time.Duration {
	minutes := int(s.TimeOut) - int(s.TimeIn)
	if minutes <= 0 {
		minutes += minutesPerDay
	}
	return time.Duration(minutes) * time.Minute
}

// EffectiveOn reports whether the schedule applies to the given shift-date.
// Dates are compared by calendar fields so DATE columns scanned as UTC
// midnight line up with shift-dates built in the site location.
func (s EmployeeSchedule) EffectiveOn(date time.Time) bool {
	if !s.IsActive {
		return false
	}
	d := DayKey(date)
	if d < DayKey(s.EffectiveFrom) {
		return false
	}
	if s.EffectiveTo != nil && d > DayKey(*s.EffectiveTo) {
		return false
	}
	return true
}

func (s EmployeeSchedule) IsWorkday(shiftDate time.Time) bool {
	return s.Workdays.Has(shiftDate.Weekday())
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey encodes the calendar date of t as yyyymmdd, ignoring its location.
func DayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// AddDays moves a date by whole calendar days, keeping it at midnight.
func AddDays(date time.Time, days int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day()+days, 0, 0, 0, 0, date.Location())
}

// Lookup returns the schedule effective on a shift-date, or nil.
type Lookup func(date time.Time) *EmployeeSchedule

// NewLookup builds a Lookup over preloaded schedules. When several overlap
// the one with the latest EffectiveFrom wins, then the lowest ID.
func NewLookup(schedules []EmployeeSchedule) Lookup {
	sorted := make([]EmployeeSchedule, len(schedules))
	copy(sorted, schedules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EffectiveFrom.Equal(sorted[j].EffectiveFrom) {
			return sorted[i].EffectiveFrom.After(sorted[j].EffectiveFrom)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return func(date time.Time) *EmployeeSchedule {
		for i := range sorted {
			if sorted[i].EffectiveOn(date) {
				return &sorted[i]
			}
		}
		return nil
	}
}
