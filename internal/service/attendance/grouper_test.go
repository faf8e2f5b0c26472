package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func punchAt(id string, ts time.Time) punch.PunchEvent {
	employeeID := "e1"
	return punch.PunchEvent{ID: id, EmployeeID: &employeeID, PunchedAt: ts.UTC(), SiteID: "site-a"}
}

func shiftDates(groups []ShiftGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.ShiftDate.Format("2006-01-02"))
	}
	return out
}

func TestGroupPunches_GraveyardAcrossMidnight(t *testing.T) {
	punches := []punch.PunchEvent{
		punchAt("p1", at(2024, 3, 4, 21, 55)),
		punchAt("p2", at(2024, 3, 5, 6, 3)),
		punchAt("p3", at(2024, 3, 5, 21, 58)),
		punchAt("p4", at(2024, 3, 6, 6, 1)),
	}

	result := GroupPunches("e1", punches, schedule.NewLookup([]schedule.EmployeeSchedule{nightShift}), testLoc)

	require.Empty(t, result.Unassigned)
	assert.Equal(t, []string{"2024-03-04", "2024-03-05"}, shiftDates(result.Groups))
	assert.Len(t, result.Groups[0].Punches, 2)
	assert.Len(t, result.Groups[1].Punches, 2)
}

func TestGroupPunches_OrderIndependent(t *testing.T) {
	punches := []punch.PunchEvent{
		punchAt("p1", at(2024, 3, 4, 8, 58)),
		punchAt("p2", at(2024, 3, 4, 18, 2)),
		punchAt("p3", at(2024, 3, 5, 9, 1)),
		punchAt("p4", at(2024, 3, 5, 17, 45)),
	}
	reversed := []punch.PunchEvent{punches[3], punches[1], punches[2], punches[0]}
	lookup := schedule.NewLookup([]schedule.EmployeeSchedule{dayShift})

	a := GroupPunches("e1", punches, lookup, testLoc)
	b := GroupPunches("e1", reversed, lookup, testLoc)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"2024-03-04", "2024-03-05"}, shiftDates(a.Groups))
}

func TestGroupPunches_Unassigned(t *testing.T) {
	future := dayShift
	future.ID = "s-future"
	future.EffectiveFrom = date(2024, 3, 11)

	t.Run("non workday", func(t *testing.T) {
		result := GroupPunches("e1", []punch.PunchEvent{punchAt("p1", at(2024, 3, 9, 9, 0))},
			schedule.NewLookup([]schedule.EmployeeSchedule{dayShift}), testLoc)

		assert.Empty(t, result.Groups)
		require.Len(t, result.Unassigned, 1)
		assert.Equal(t, UnscheduledNonWorkday, result.Unassigned[0].Reason)
		assert.Equal(t, "e1", result.Unassigned[0].EmployeeID)
	})

	t.Run("no schedule", func(t *testing.T) {
		result := GroupPunches("e1", []punch.PunchEvent{punchAt("p1", at(2024, 3, 4, 9, 0))},
			schedule.NewLookup([]schedule.EmployeeSchedule{future}), testLoc)

		assert.Empty(t, result.Groups)
		require.Len(t, result.Unassigned, 1)
		assert.Equal(t, UnscheduledNoSchedule, result.Unassigned[0].Reason)
	})
}

// A night schedule ending Monday followed by a day schedule from Tuesday:
// Tuesday-morning punches go to whichever shift they sit closest to.
func TestGroupPunches_RotationBoundary(t *testing.T) {
	night := nightShift
	lastNight := date(2024, 3, 4)
	night.EffectiveTo = &lastNight
	early := testSchedule("s-day-2", "e1", "08:00", "17:00", schedule.ShiftTypeRegular)
	early.EffectiveFrom = date(2024, 3, 5)

	punches := []punch.PunchEvent{
		punchAt("p1", at(2024, 3, 4, 21, 58)),
		punchAt("p2", at(2024, 3, 5, 6, 5)),
		punchAt("p3", at(2024, 3, 5, 7, 55)),
		punchAt("p4", at(2024, 3, 5, 17, 2)),
	}

	result := GroupPunches("e1", punches, schedule.NewLookup([]schedule.EmployeeSchedule{night, early}), testLoc)

	require.Empty(t, result.Unassigned)
	require.Equal(t, []string{"2024-03-04", "2024-03-05"}, shiftDates(result.Groups))
	assert.Equal(t, "s-night", result.Groups[0].Schedule.ID)
	assert.Equal(t, []string{"p1", "p2"}, []string{result.Groups[0].Punches[0].ID, result.Groups[0].Punches[1].ID})
	assert.Equal(t, "s-day-2", result.Groups[1].Schedule.ID)
	assert.Equal(t, []string{"p3", "p4"}, []string{result.Groups[1].Punches[0].ID, result.Groups[1].Punches[1].ID})
}
