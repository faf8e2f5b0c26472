package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PointRepository struct {
	mu     sync.Mutex
	points map[string]point.Point
}

func NewPointRepository() *PointRepository {
	return &PointRepository{points: make(map[string]point.Point)}
}

func (r *PointRepository) GetByID(ctx context.Context, id string) (point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.points[id]
	if !ok {
		return point.Point{}, point.ErrPointNotFound
	}
	return p, nil
}

func (r *PointRepository) GetByRecordID(ctx context.Context, recordID string) (*point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.points {
		if p.AttendanceRecordID != nil && *p.AttendanceRecordID == recordID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *PointRepository) Create(ctx context.Context, p point.Point) (point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	r.points[p.ID] = p
	return p, nil
}

func (r *PointRepository) Update(ctx context.Context, p point.Point) (point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.points[p.ID]
	if !ok {
		return point.Point{}, point.ErrPointNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = now()
	r.points[p.ID] = p
	return p, nil
}

func (r *PointRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.points[id]; !ok {
		return point.ErrPointNotFound
	}
	delete(r.points, id)
	return nil
}

func (r *PointRepository) SetExcuse(ctx context.Context, id, excusedBy, reason string, at time.Time) (point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.points[id]
	if !ok {
		return point.Point{}, point.ErrPointNotFound
	}
	p.IsExcused = true
	p.ExcusedBy = &excusedBy
	p.ExcuseReason = &reason
	p.ExcusedAt = &at
	p.UpdatedAt = now()
	r.points[id] = p
	return p, nil
}

func (r *PointRepository) ClearExcuse(ctx context.Context, id string) (point.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.points[id]
	if !ok {
		return point.Point{}, point.ErrPointNotFound
	}
	p.IsExcused = false
	p.ExcusedBy = nil
	p.ExcuseReason = nil
	p.ExcusedAt = nil
	p.UpdatedAt = now()
	r.points[id] = p
	return p, nil
}

func (r *PointRepository) ListByEmployee(ctx context.Context, filter point.ListFilter) ([]point.Point, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []point.Point
	for _, p := range r.points {
		if p.EmployeeID != filter.EmployeeID {
			continue
		}
		k := dayKey(p.ShiftDate)
		if filter.FromDate != nil && k < dayKey(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && k > dayKey(*filter.ToDate) {
			continue
		}
		if !filter.IncludeExpired && p.IsExpired(filter.Now) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ShiftDate.Equal(all[j].ShiftDate) {
			return all[i].ShiftDate.After(all[j].ShiftDate)
		}
		return all[i].ID < all[j].ID
	})

	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start < 0 || start >= len(all) {
		return []point.Point{}, total, nil
	}
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func (r *PointRepository) Statistics(ctx context.Context, employeeID string, from, to, at time.Time, gbroTypes []point.Type) (point.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := point.Statistics{
		EmployeeID:    employeeID,
		TotalPoints:   decimal.Zero,
		ActivePoints:  decimal.Zero,
		ExpiredPoints: decimal.Zero,
		ExcusedPoints: decimal.Zero,
		CountByType:   make(map[point.Type]int),
	}
	for _, p := range r.points {
		k := dayKey(p.ShiftDate)
		if p.EmployeeID != employeeID || k < dayKey(from) || k > dayKey(to) {
			continue
		}
		stats.TotalPoints = stats.TotalPoints.Add(p.Points)
		stats.TotalCount++
		stats.CountByType[p.PointType]++
		switch {
		case p.IsExcused:
			stats.ExcusedPoints = stats.ExcusedPoints.Add(p.Points)
			stats.ExcusedCount++
		case p.IsExpired(at):
			stats.ExpiredPoints = stats.ExpiredPoints.Add(p.Points)
			stats.ExpiredCount++
		default:
			stats.ActivePoints = stats.ActivePoints.Add(p.Points)
			stats.ActiveCount++
			if slices.Contains(gbroTypes, p.PointType) {
				stats.GBROEligibleCount++
			}
		}
	}
	return stats, nil
}

// All returns every stored point ordered by shift-date then id.
func (r *PointRepository) All() []point.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]point.Point, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ShiftDate.Equal(out[j].ShiftDate) {
			return out[i].ShiftDate.Before(out[j].ShiftDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
