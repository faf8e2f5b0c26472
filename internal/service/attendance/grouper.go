package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
)

const (
	UnscheduledNoSchedule = "no_schedule"
	UnscheduledNonWorkday = "non_workday"
)

// ShiftGroup is every punch of one employee attributed to one shift-date.
type ShiftGroup struct {
	EmployeeID string
	ShiftDate  time.Time
	Schedule   schedule.EmployeeSchedule
	Punches    []punch.PunchEvent
}

type GroupResult struct {
	Groups     []ShiftGroup
	Unassigned []punch.UnscheduledPunch
}

// GroupPunches attributes archived punches of one employee to shift-dates.
// The schedule effective on a candidate shift-date decides whether that date
// claims a punch. Output order depends only on the punches themselves, never
// on the order they were archived in.
func GroupPunches(employeeID string, punches []punch.PunchEvent, lookup schedule.Lookup, loc *time.Location) GroupResult {
	sorted := make([]punch.PunchEvent, len(punches))
	copy(sorted, punches)
	SortPunches(sorted)

	byDate := make(map[int]*ShiftGroup)
	var result GroupResult
	for _, p := range sorted {
		ts := p.PunchedAt.In(loc)
		shiftDate, s := resolve(ts, lookup)
		if s == nil {
			result.Unassigned = append(result.Unassigned, punch.UnscheduledPunch{
				EmployeeID: employeeID,
				PunchedAt:  ts,
				Reason:     UnscheduledNoSchedule,
			})
			continue
		}
		if !s.IsWorkday(shiftDate) {
			result.Unassigned = append(result.Unassigned, punch.UnscheduledPunch{
				EmployeeID: employeeID,
				PunchedAt:  ts,
				Reason:     UnscheduledNonWorkday,
			})
			continue
		}

		key := schedule.DayKey(shiftDate)
		g, ok := byDate[key]
		if !ok {
			g = &ShiftGroup{EmployeeID: employeeID, ShiftDate: shiftDate, Schedule: *s}
			byDate[key] = g
		}
		g.Punches = append(g.Punches, p)
	}

	keys := make([]int, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		result.Groups = append(result.Groups, *byDate[k])
	}
	return result
}

// SortPunches orders punches by time, then id.
func SortPunches(punches []punch.PunchEvent) {
	sort.SliceStable(punches, func(i, j int) bool {
		if !punches[i].PunchedAt.Equal(punches[j].PunchedAt) {
			return punches[i].PunchedAt.Before(punches[j].PunchedAt)
		}
		return punches[i].ID < punches[j].ID
	})
}
