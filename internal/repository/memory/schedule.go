package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/schedule"
)

// ScheduleProvider serves fixed schedules. Site membership comes from the directory, if set.
type ScheduleProvider struct {
	mu        sync.RWMutex
	schedules []schedule.EmployeeSchedule
	directory *Directory
}

func NewScheduleProvider(directory *Directory, schedules ...schedule.EmployeeSchedule) *ScheduleProvider {
	return &ScheduleProvider{schedules: schedules, directory: directory}
}

func (p *ScheduleProvider) Add(s schedule.EmployeeSchedule) {
	p.mu.Lock()
	p.schedules = append(p.schedules, s)
	p.mu.Unlock()
}

func overlaps(s schedule.EmployeeSchedule, from, to time.Time) bool {
	if !s.IsActive || dayKey(s.EffectiveFrom) > dayKey(to) {
		return false
	}
	return s.EffectiveTo == nil || dayKey(*s.EffectiveTo) >= dayKey(from)
}

func (p *ScheduleProvider) GetByID(ctx context.Context, id string) (*schedule.EmployeeSchedule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.schedules {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, schedule.ErrScheduleNotFound
}

func (p *ScheduleProvider) ActiveSchedule(ctx context.Context, employeeID string, date time.Time) (*schedule.EmployeeSchedule, error) {
	list, err := p.ListActive(ctx, employeeID, date, date)
	if err != nil {
		return nil, err
	}
	if s := schedule.NewLookup(list)(date); s != nil {
		return s, nil
	}
	return nil, schedule.ErrScheduleNotFound
}

func (p *ScheduleProvider) ListActive(ctx context.Context, employeeID string, from, to time.Time) ([]schedule.EmployeeSchedule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []schedule.EmployeeSchedule
	for _, s := range p.schedules {
		if s.EmployeeID == employeeID && overlaps(s, from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *ScheduleProvider) ScheduledEmployees(ctx context.Context, from, to time.Time, siteID *string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, s := range p.schedules {
		if !overlaps(s, from, to) {
			continue
		}
		if _, ok := seen[s.EmployeeID]; ok {
			continue
		}
		if siteID != nil && p.directory != nil {
			e, err := p.directory.GetByID(ctx, s.EmployeeID)
			if err != nil || e.SiteID != *siteID {
				continue
			}
		}
		seen[s.EmployeeID] = struct{}{}
		out = append(out, s.EmployeeID)
	}
	sort.Strings(out)
	return out, nil
}

type Directory struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
}

func NewDirectory(employees ...employee.Employee) *Directory {
	d := &Directory{employees: make(map[string]employee.Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (d *Directory) FindByNormalizedName(ctx context.Context, normalizedName string) ([]employee.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []employee.Employee
	for _, e := range d.employees {
		if e.NormalizedName == normalizedName && e.EmploymentStatus != employee.EmploymentStatusInactive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}
