package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("PHT", 8*60*60)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, testLoc)
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

func TestParser_Parse_TabSeparated(t *testing.T) {
	raw := lines(
		"No\tName\tDateTime",
		"1\tJuan Dela Cruz\t2024-03-04 08:55:00",
		"2\tMaria Santos\t2024-03-04\t09:01",
		"",
		"3\t\t2024-03-04 09:00:00",
		"x\tBob\t2024-03-04 09:00:00",
		"4\tBob\tyesterday",
		"5\tBob",
		"6\tAna\t2024-03-09 07:00:00   ",
	)

	res, err := NewParser(testLoc).Parse(raw, date(2024, 3, 4), date(2024, 3, 5))
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Records[0].Line)
	assert.EqualValues(t, 1, res.Records[0].DeviceSeq)
	assert.Equal(t, "Juan Dela Cruz", res.Records[0].DeviceName)
	assert.True(t, res.Records[0].PunchedAt.Equal(at(2024, 3, 4, 8, 55)))
	assert.Equal(t, "Maria Santos", res.Records[1].DeviceName)
	assert.True(t, res.Records[1].PunchedAt.Equal(at(2024, 3, 4, 9, 1)))
	assert.Equal(t, 9, res.Records[2].Line)

	reasons := map[int]string{}
	for _, d := range res.Skipped {
		reasons[d.Line] = d.Reason
	}
	assert.Equal(t, map[int]string{
		5: "empty name",
		6: "non-numeric sequence",
		7: "unparseable timestamp",
		8: "too few columns",
	}, reasons, "header and blank lines are skipped silently")

	require.Len(t, res.DateWarnings, 1)
	assert.Equal(t, 9, res.DateWarnings[0].Line)
	assert.Equal(t, "Ana", res.DateWarnings[0].DeviceName)
}

func TestParser_Parse_SpaceSeparated(t *testing.T) {
	raw := lines(
		"1  Juan Dela Cruz  2024/03/04 08:55:00",
		"2 Maria 03/04/2024 17:05",
		"3 Ana Reyes 2024-03-04T01:00:00Z",
		"4   Pedro   2024-03-04   07:59",
	)

	res, err := NewParser(testLoc).Parse(raw, date(2024, 3, 4), date(2024, 3, 4))
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.DateWarnings)

	assert.Equal(t, "Juan Dela Cruz", res.Records[0].DeviceName)
	assert.True(t, res.Records[0].PunchedAt.Equal(at(2024, 3, 4, 8, 55)))

	assert.Equal(t, "Maria", res.Records[1].DeviceName)
	assert.True(t, res.Records[1].PunchedAt.Equal(at(2024, 3, 4, 17, 5)))

	assert.Equal(t, "Ana Reyes", res.Records[2].DeviceName)
	assert.True(t, res.Records[2].PunchedAt.Equal(at(2024, 3, 4, 9, 0)), "RFC3339 input is converted to the site location")
	assert.Equal(t, testLoc, res.Records[2].PunchedAt.Location())

	assert.Equal(t, "Pedro", res.Records[3].DeviceName)
	assert.EqualValues(t, 4, res.Records[3].DeviceSeq)
}

func TestParser_Parse_WallClockInSiteLocation(t *testing.T) {
	res, err := NewParser(testLoc).Parse("1\tJuan\t2024-03-04 23:30:00", date(2024, 3, 4), date(2024, 3, 4))
	require.NoError(t, err)

	ts := res.Records[0].PunchedAt
	assert.Equal(t, 23, ts.Hour())
	assert.True(t, ts.Equal(time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)))
}

func TestParser_Parse_Failures(t *testing.T) {
	p := NewParser(testLoc)

	t.Run("empty input", func(t *testing.T) {
		_, err := p.Parse(" \n\t\n", date(2024, 3, 4), date(2024, 3, 4))
		assert.ErrorIs(t, err, punch.ErrEmptyPunchLog)
	})

	t.Run("no valid records", func(t *testing.T) {
		res, err := p.Parse(lines("No Name Time", "1\tJuan\tnot-a-time"), date(2024, 3, 4), date(2024, 3, 4))
		assert.ErrorIs(t, err, punch.ErrNoValidRecords)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, 2, res.Skipped[0].Line)
	})

	t.Run("first line with digits is not a header", func(t *testing.T) {
		res, err := p.Parse(lines("abc\tJuan\t2024-03-04 08:00:00", "1\tJuan\t2024-03-04 08:00:00"), date(2024, 3, 4), date(2024, 3, 4))
		require.NoError(t, err)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "non-numeric sequence", res.Skipped[0].Reason)
	})
}

func TestParser_Parse_LongLineTruncatedInDiagnostic(t *testing.T) {
	long := "1\tJuan\t" + strings.Repeat("z", 500)
	res, err := NewParser(testLoc).Parse(lines(long, "2\tJuan\t2024-03-04 08:00"), date(2024, 3, 4), date(2024, 3, 4))
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Len(t, res.Skipped[0].Content, maxDiagnosticContent)
}
