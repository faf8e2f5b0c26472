package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/google/uuid"
)

type AttendanceRepository struct {
	mu      sync.Mutex
	records map[string]attendance.Record // by id
	byShift map[string]string            // employee|yyyymmdd -> id
}

func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		records: make(map[string]attendance.Record),
		byShift: make(map[string]string),
	}
}

func shiftKey(employeeID string, shiftDate time.Time) string {
	return fmt.Sprintf("%s|%d", employeeID, dayKey(shiftDate))
}

// LockEmployee is a no-op beyond checking the context: memory writes are
// serialized by the repository mutex.
func (r *AttendanceRepository) LockEmployee(ctx context.Context, employeeID string) error {
	return ctx.Err()
}

func (r *AttendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, attendance.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := shiftKey(rec.EmployeeID, rec.ShiftDate)
	if id, ok := r.byShift[key]; ok {
		existing := r.records[id]
		if existing.AdminVerified {
			return existing, attendance.OutcomeSkippedVerified, nil
		}
		if existing.SameComputed(rec) {
			return existing, attendance.OutcomeUnchanged, nil
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now()
		r.records[id] = rec
		return rec, attendance.OutcomeUpdated, nil
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = now()
	rec.UpdatedAt = rec.CreatedAt
	r.records[rec.ID] = rec
	r.byShift[key] = rec.ID
	return rec, attendance.OutcomeCreated, nil
}

func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (r *AttendanceRepository) GetByEmployeeDate(ctx context.Context, employeeID string, shiftDate time.Time) (*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byShift[shiftKey(employeeID, shiftDate)]
	if !ok {
		return nil, nil
	}
	rec := r.records[id]
	return &rec, nil
}

func (r *AttendanceRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []attendance.Record
	for _, rec := range r.records {
		k := dayKey(rec.ShiftDate)
		if rec.EmployeeID == employeeID && k >= dayKey(from) && k <= dayKey(to) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *AttendanceRepository) ListReviewQueue(ctx context.Context, filter attendance.ReviewQueueFilter) ([]attendance.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []attendance.Record
	for _, rec := range r.records {
		if !rec.NeedsReview || rec.AdminVerified {
			continue
		}
		k := dayKey(rec.ShiftDate)
		if filter.FromDate != nil && k < dayKey(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && k > dayKey(*filter.ToDate) {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ShiftDate.Equal(all[j].ShiftDate) {
			return all[i].ShiftDate.Before(all[j].ShiftDate)
		}
		return all[i].EmployeeID < all[j].EmployeeID
	})

	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start < 0 || start >= len(all) {
		return []attendance.Record{}, total, nil
	}
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func (r *AttendanceRepository) SaveVerified(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = now()
	r.records[rec.ID] = rec
	return rec, nil
}

// All returns every stored record ordered by employee and shift-date.
func (r *AttendanceRepository) All() []attendance.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]attendance.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []attendance.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].EmployeeID != recs[j].EmployeeID {
			return recs[i].EmployeeID < recs[j].EmployeeID
		}
		return recs[i].ShiftDate.Before(recs[j].ShiftDate)
	})
}
