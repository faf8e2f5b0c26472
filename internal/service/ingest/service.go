package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type IngestServiceImpl struct {
	tx          database.Transactor
	punches     punch.Repository
	directory   employee.Directory
	schedules   schedule.Provider
	coordinator attendance.Coordinator
	parser      *Parser
	loc         *time.Location
}

func NewIngestService(
	tx database.Transactor,
	punches punch.Repository,
	directory employee.Directory,
	schedules schedule.Provider,
	coordinator attendance.Coordinator,
	loc *time.Location,
) *IngestServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &IngestServiceImpl{
		tx:          tx,
		punches:     punches,
		directory:   directory,
		schedules:   schedules,
		coordinator: coordinator,
		parser:      NewParser(loc),
		loc:         loc,
	}
}

// Ingest parses a device log, archives every punch and reconciles the
// affected shift-dates. Unmatched names and per-employee reconciliation
// failures are reported in the result, never returned as errors.
func (s *IngestServiceImpl) Ingest(ctx context.Context, req punch.IngestRequest) (punch.IngestResult, error) {
	if err := req.Validate(); err != nil {
		return punch.IngestResult{}, err
	}
	// Declared dates are calendar days at the site, whatever location they were parsed in.
	from := inLocation(req.DateFrom, s.loc)
	to := inLocation(req.DateTo, s.loc)

	result := punch.IngestResult{
		UploadID:           req.UploadID,
		UnmatchedNames:     []string{},
		AmbiguousNames:     []string{},
		DateWarnings:       []punch.DateWarning{},
		SkippedLines:       []punch.LineDiagnostic{},
		UnscheduledPunches: []punch.UnscheduledPunch{},
	}

	parsed, err := s.parser.Parse(req.RawText, from, to)
	result.SkippedLines = append(result.SkippedLines, parsed.Skipped...)
	result.DateWarnings = append(result.DateWarnings, parsed.DateWarnings...)
	if err != nil {
		return result, err
	}
	result.TotalRecords = len(parsed.Records)

	events, matched, err := s.match(ctx, req, parsed.Records, &result)
	if err != nil {
		return result, err
	}

	// Phase 1: the archive is written in one unit so a failed upload leaves nothing behind.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.punches.InsertBatch(ctx, events)
		if err != nil {
			return fmt.Errorf("archive punches: %w", err)
		}
		result.ArchivedCount = n
		return nil
	})
	if err != nil {
		return result, err
	}
	result.DuplicateCount = len(events) - result.ArchivedCount

	slog.Info("Punch log archived",
		"upload_id", req.UploadID,
		"site_id", req.SiteID,
		"records", result.TotalRecords,
		"archived", result.ArchivedCount,
		"matched", result.MatchedCount,
		"unmatched", result.UnmatchedCount,
	)

	// Phase 2: reconcile matched employees plus everyone scheduled at the
	// site, so absentees get their no-show records. The day before the
	// range is included for graveyard shifts that end inside it.
	reconcileFrom := schedule.AddDays(from, -1)
	siteID := req.SiteID
	scheduled, err := s.schedules.ScheduledEmployees(ctx, reconcileFrom, to, &siteID)
	if err != nil {
		return result, fmt.Errorf("list scheduled employees: %w", err)
	}
	targets := mergeIDs(matched, scheduled)
	if len(targets) == 0 {
		return result, nil
	}

	rec, err := s.coordinator.ReconcileRange(ctx, attendance.ReconcileRequest{
		From:        reconcileFrom,
		To:          to,
		EmployeeIDs: targets,
		Trigger:     attendance.TriggerIngest,
	})
	if err != nil {
		return result, fmt.Errorf("reconcile: %w", err)
	}

	result.Reconcile = punch.ReconcileSummary{
		RecordsCreated:   rec.RecordsCreated,
		RecordsUpdated:   rec.RecordsUpdated,
		RecordsUnchanged: rec.RecordsUnchanged,
		SkippedVerified:  rec.SkippedVerified,
	}
	for _, f := range rec.Failures {
		result.Reconcile.FailedEmployees = append(result.Reconcile.FailedEmployees, f.EmployeeID)
	}
	result.UnscheduledPunches = append(result.UnscheduledPunches, rec.Unscheduled...)

	return result, nil
}

// match resolves device names and builds the archive rows.
func (s *IngestServiceImpl) match(ctx context.Context, req punch.IngestRequest, records []punch.RawPunch, result *punch.IngestResult) ([]punch.PunchEvent, []string, error) {
	matcher := NewMatcher(s.directory, req.SiteID)
	unmatched := make(map[string]string)
	ambiguous := make(map[string]string)
	matchedSet := make(map[string]struct{})

	events := make([]punch.PunchEvent, 0, len(records))
	for _, r := range records {
		key := NormalizeName(r.DeviceName)
		m, err := matcher.Match(ctx, key)
		if err != nil {
			return nil, nil, err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, nil, fmt.Errorf("generate punch id: %w", err)
		}
		ev := punch.PunchEvent{
			ID:             id.String(),
			DeviceName:     r.DeviceName,
			NormalizedName: key,
			SiteID:         req.SiteID,
			PunchedAt:      r.PunchedAt,
			DeviceSeq:      r.DeviceSeq,
			UploadID:       req.UploadID,
		}

		if m.Matched {
			empID := m.EmployeeID
			ev.EmployeeID = &empID
			matchedSet[empID] = struct{}{}
			result.MatchedCount++
		} else {
			result.UnmatchedCount++
			if m.Reason == UnmatchedAmbiguous {
				if _, ok := ambiguous[key]; !ok {
					ambiguous[key] = r.DeviceName
				}
			} else if _, ok := unmatched[key]; !ok {
				unmatched[key] = r.DeviceName
			}
		}
		events = append(events, ev)
	}

	result.UnmatchedNames = sortedValues(unmatched)
	result.AmbiguousNames = sortedValues(ambiguous)

	matched := make([]string, 0, len(matchedSet))
	for id := range matchedSet {
		matched = append(matched, id)
	}
	sort.Strings(matched)
	return events, matched, nil
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func mergeIDs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return slices.Compact(out)
}

func inLocation(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}
