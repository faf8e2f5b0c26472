package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type CoordinatorConfig struct {
	Workers  int // employees reconciled in parallel, default 4
	Policy   Policy
	Location *time.Location
	Now      func() time.Time // defaults to time.Now
}

// CoordinatorImpl re-derives attendance records and system points from the
// punch archive. Every run is idempotent: identical archive and schedules
// produce identical rows.
type CoordinatorImpl struct {
	tx         database.Transactor
	records    attendance.Repository
	punches    punch.Repository
	schedules  schedule.Provider
	points     point.Syncer
	authorizer auth.Authorizer
	config     CoordinatorConfig
	now        func() time.Time
	inflight   singleflight.Group
}

func NewCoordinator(
	tx database.Transactor,
	records attendance.Repository,
	punches punch.Repository,
	schedules schedule.Provider,
	points point.Syncer,
	authorizer auth.Authorizer,
	cfg CoordinatorConfig,
) *CoordinatorImpl {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CoordinatorImpl{
		tx:         tx,
		records:    records,
		punches:    punches,
		schedules:  schedules,
		points:     points,
		authorizer: authorizer,
		config:     cfg,
		now:        cfg.Now,
	}
}

// ReconcileRange reconciles shift-dates [From, To] for the requested
// employees. A failing employee is reported in Failures and does not affect
// the others; only cancellation aborts the run.
func (c *CoordinatorImpl) ReconcileRange(ctx context.Context, req attendance.ReconcileRequest) (attendance.ReconcileResult, error) {
	from := c.date(req.From)
	to := c.date(req.To)
	if from.After(to) {
		return attendance.ReconcileResult{}, attendance.ErrInvalidDateRange
	}

	targets := normalizeIDs(req.EmployeeIDs)
	if len(targets) == 0 {
		ids, err := c.schedules.ScheduledEmployees(ctx, from, to, req.SiteID)
		if err != nil {
			return attendance.ReconcileResult{}, fmt.Errorf("list scheduled employees: %w", err)
		}
		targets = normalizeIDs(ids)
	}

	start := c.now()
	now := start
	results := make([]attendance.ReconcileResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)
	for i, employeeID := range targets {
		i, employeeID := i, employeeID
		g.Go(func() error {
			res, err := c.reconcileEmployee(gctx, employeeID, from, to, now)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Error("Employee reconciliation failed",
					"employee_id", employeeID,
					"from", from.Format("2006-01-02"),
					"to", to.Format("2006-01-02"),
					"error", err,
				)
				res = attendance.ReconcileResult{
					Failures: []attendance.EmployeeFailure{{EmployeeID: employeeID, Error: err.Error()}},
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return attendance.ReconcileResult{}, err
	}

	total := attendance.ReconcileResult{
		Unscheduled: []punch.UnscheduledPunch{},
		Failures:    []attendance.EmployeeFailure{},
	}
	for _, r := range results {
		total.Merge(r)
	}

	slog.Info("Reconciliation finished",
		"trigger", req.Trigger,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
		"employees", len(targets),
		"created", total.RecordsCreated,
		"updated", total.RecordsUpdated,
		"unchanged", total.RecordsUnchanged,
		"skipped_verified", total.SkippedVerified,
		"failures", len(total.Failures),
		"duration", c.now().Sub(start),
	)
	return total, nil
}

// reconcileEmployee runs one employee in a single transaction under the
// employee's lock, so concurrent uploads and reprocess runs serialize.
func (c *CoordinatorImpl) reconcileEmployee(ctx context.Context, employeeID string, from, to, now time.Time) (attendance.ReconcileResult, error) {
	var result attendance.ReconcileResult
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The unit may be retried; start from a clean result each attempt.
		result = attendance.ReconcileResult{EmployeesProcessed: 1}

		if err := c.records.LockEmployee(ctx, employeeID); err != nil {
			return fmt.Errorf("lock employee: %w", err)
		}

		schedules, err := c.schedules.ListActive(ctx, employeeID, schedule.AddDays(from, -2), schedule.AddDays(to, 1))
		if err != nil {
			return fmt.Errorf("load schedules: %w", err)
		}
		lookup := schedule.NewLookup(schedules)

		punches, err := c.punches.ListByEmployeeRange(ctx, employeeID, schedule.AddDays(from, -1), schedule.AddDays(to, 2))
		if err != nil {
			return fmt.Errorf("load punches: %w", err)
		}

		grouped := GroupPunches(employeeID, punches, lookup, c.config.Location)
		byDate := make(map[int]ShiftGroup, len(grouped.Groups))
		for _, g := range grouped.Groups {
			byDate[schedule.DayKey(g.ShiftDate)] = g
		}
		fromKey, toKey := schedule.DayKey(from), schedule.DayKey(to)
		for _, u := range grouped.Unassigned {
			if k := schedule.DayKey(u.PunchedAt); k >= fromKey && k <= toKey {
				result.Unscheduled = append(result.Unscheduled, u)
			}
		}

		for d := from; !d.After(to); d = schedule.AddDays(d, 1) {
			s := lookup(d)
			if s == nil || !s.IsWorkday(d) {
				continue
			}
			g, ok := byDate[schedule.DayKey(d)]
			if !ok {
				g = ShiftGroup{EmployeeID: employeeID, ShiftDate: d, Schedule: *s}
			}

			rec, ok := Reconcile(g, c.config.Policy, now)
			if !ok {
				continue
			}
			if err := c.store(ctx, rec, &result); err != nil {
				return fmt.Errorf("shift %s: %w", d.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	return result, err
}

func (c *CoordinatorImpl) store(ctx context.Context, rec attendance.Record, result *attendance.ReconcileResult) error {
	saved, outcome, err := c.records.Upsert(ctx, rec)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	switch outcome {
	case attendance.OutcomeSkippedVerified:
		result.SkippedVerified++
		return nil
	case attendance.OutcomeCreated:
		result.RecordsCreated++
	case attendance.OutcomeUpdated:
		result.RecordsUpdated++
	default:
		result.RecordsUnchanged++
	}

	// Unchanged records are synced too: the point policy may have changed.
	synced, err := c.points.Sync(ctx, saved)
	if err != nil {
		return fmt.Errorf("sync points: %w", err)
	}
	switch synced {
	case point.SyncCreated:
		result.PointsCreated++
	case point.SyncUpdated:
		result.PointsUpdated++
	case point.SyncRemoved:
		result.PointsRemoved++
	}
	return nil
}

// Reprocess re-runs reconciliation for an administrator. Identical
// concurrent requests share one run.
func (c *CoordinatorImpl) Reprocess(ctx context.Context, actor auth.Actor, req attendance.ReprocessRequest) (attendance.ReconcileResult, error) {
	if err := auth.Require(ctx, c.authorizer, actor, auth.PermissionAttendanceReprocess); err != nil {
		return attendance.ReconcileResult{}, err
	}
	from, to, err := req.Parse()
	if err != nil {
		return attendance.ReconcileResult{}, err
	}
	ids := normalizeIDs(req.EmployeeIDs)

	key := from.Format("2006-01-02") + "|" + to.Format("2006-01-02") + "|" + strings.Join(ids, ",")
	v, err, shared := c.inflight.Do(key, func() (any, error) {
		slog.Info("Reprocess started", "actor", actor.UserID, "from", req.From, "to", req.To, "employees", len(ids))
		// Detached from the caller so one disconnecting client does not
		// cancel a run other callers are waiting on.
		return c.ReconcileRange(context.WithoutCancel(ctx), attendance.ReconcileRequest{
			From:        from,
			To:          to,
			EmployeeIDs: ids,
			Trigger:     attendance.TriggerReprocess,
		})
	})
	if err != nil {
		return attendance.ReconcileResult{}, err
	}
	if shared {
		slog.Debug("Reprocess result shared", "key", key, "actor", actor.UserID)
	}
	res, ok := v.(attendance.ReconcileResult)
	if !ok {
		return attendance.ReconcileResult{}, errors.New("unexpected reprocess result")
	}
	return res, nil
}

// date keeps the calendar day of t and moves it to the site location.
func (c *CoordinatorImpl) date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.config.Location)
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
