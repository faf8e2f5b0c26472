package ingest

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
)

// Layouts accepted for the timestamp column, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

const maxDiagnosticContent = 200

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Parser turns a scanner export into punch tuples. Each line carries a
// device sequence number, the enrolled name and the scan time.
type Parser struct {
	loc *time.Location
}

func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Parse reads every line of raw. Lines that cannot be read are reported and
// skipped. Punches dated outside [from, to] are kept with a warning.
func (p *Parser) Parse(raw string, from, to time.Time) (punch.ParseResult, error) {
	var result punch.ParseResult
	if strings.TrimSpace(raw) == "" {
		return result, punch.ErrEmptyPunchLog
	}

	fromKey, toKey := schedule.DayKey(from), schedule.DayKey(to)
	firstContent := true

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		line = strings.TrimPrefix(line, "\ufeff")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, reason := p.parseLine(line)
		if reason != "" {
			if firstContent && isHeader(line) {
				firstContent = false
				continue
			}
			firstContent = false
			result.Skipped = append(result.Skipped, punch.LineDiagnostic{
				Line:    lineNo,
				Content: truncate(strings.TrimSpace(line), maxDiagnosticContent),
				Reason:  reason,
			})
			continue
		}
		firstContent = false

		rec.Line = lineNo
		result.Records = append(result.Records, rec)

		if k := schedule.DayKey(rec.PunchedAt); k < fromKey || k > toKey {
			result.DateWarnings = append(result.DateWarnings, punch.DateWarning{
				Line:       lineNo,
				DeviceName: rec.DeviceName,
				PunchedAt:  rec.PunchedAt,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return result, fmt.Errorf("read punch log: %w", err)
	}

	if len(result.Records) == 0 {
		return result, punch.ErrNoValidRecords
	}
	return result, nil
}

// parseLine returns a non-empty reason when the line is malformed.
func (p *Parser) parseLine(line string) (punch.RawPunch, string) {
	var cols []string
	switch {
	case strings.Contains(line, "\t"):
		cols = strings.Split(line, "\t")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
	case multiSpace.MatchString(strings.TrimSpace(line)):
		cols = splitTrim(multiSpace.Split(strings.TrimSpace(line), -1))
	}

	var seqCol, name string
	var ts time.Time
	var ok bool
	if len(cols) >= 3 {
		seqCol, name = cols[0], cols[1]
		ts, ok = p.parseColumns(cols[2:])
	} else {
		// Single spaces only: the name is whatever sits between the
		// sequence number and the trailing timestamp.
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return punch.RawPunch{}, "too few columns"
		}
		seqCol = fields[0]
		if len(fields) >= 4 {
			ts, ok = p.parseTimestamp(fields[len(fields)-2] + " " + fields[len(fields)-1])
			if ok {
				name = strings.Join(fields[1:len(fields)-2], " ")
			}
		}
		if !ok {
			ts, ok = p.parseTimestamp(fields[len(fields)-1])
			name = strings.Join(fields[1:len(fields)-1], " ")
		}
	}

	seq, err := strconv.ParseInt(seqCol, 10, 64)
	if err != nil {
		return punch.RawPunch{}, "non-numeric sequence"
	}
	if strings.TrimSpace(name) == "" {
		return punch.RawPunch{}, "empty name"
	}
	if !ok {
		return punch.RawPunch{}, "unparseable timestamp"
	}

	return punch.RawPunch{
		DeviceSeq:  seq,
		DeviceName: strings.Join(strings.Fields(name), " "),
		PunchedAt:  ts,
	}, ""
}

// parseColumns accepts one datetime column or a date column followed by a time column.
func (p *Parser) parseColumns(cols []string) (time.Time, bool) {
	if len(cols) >= 2 {
		if ts, ok := p.parseTimestamp(cols[0] + " " + cols[1]); ok {
			return ts, true
		}
	}
	return p.parseTimestamp(cols[0])
}

func (p *Parser) parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return ts, true
		}
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.In(p.loc), true
	}
	return time.Time{}, false
}

// isHeader recognises a column title row such as "No  Name  Date/Time".
func isHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	if _, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
		return false
	}
	for _, f := range fields {
		for _, r := range f {
			if r >= '0' && r <= '9' {
				return false
			}
		}
	}
	return true
}

func splitTrim(cols []string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
