package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/google/uuid"
)

type PunchRepository struct {
	mu      sync.RWMutex
	punches []punch.PunchEvent
	keys    map[string]struct{}
}

func NewPunchRepository() *PunchRepository {
	return &PunchRepository{keys: make(map[string]struct{})}
}

func punchKey(p punch.PunchEvent) string {
	return p.SiteID + "|" + p.DeviceName + "|" + p.PunchedAt.UTC().Format(time.RFC3339Nano)
}

func (r *PunchRepository) InsertBatch(ctx context.Context, punches []punch.PunchEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, p := range punches {
		k := punchKey(p)
		if _, dup := r.keys[k]; dup {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now()
		r.keys[k] = struct{}{}
		r.punches = append(r.punches, p)
		inserted++
	}
	return inserted, nil
}

func (r *PunchRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]punch.PunchEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []punch.PunchEvent
	for _, p := range r.punches {
		if p.EmployeeID == nil || *p.EmployeeID != employeeID {
			continue
		}
		if p.PunchedAt.Before(from) || !p.PunchedAt.Before(to) {
			continue
		}
		out = append(out, p)
	}
	sortPunches(out)
	return out, nil
}

func (r *PunchRepository) ListByUpload(ctx context.Context, uploadID string) ([]punch.PunchEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []punch.PunchEvent
	for _, p := range r.punches {
		if p.UploadID == uploadID {
			out = append(out, p)
		}
	}
	sortPunches(out)
	return out, nil
}

func sortPunches(ps []punch.PunchEvent) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].PunchedAt.Equal(ps[j].PunchedAt) {
			return ps[i].PunchedAt.Before(ps[j].PunchedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}

type UploadRepository struct {
	mu      sync.Mutex
	batches map[string]punch.UploadBatch
	order   []string
}

func NewUploadRepository() *UploadRepository {
	return &UploadRepository{batches: make(map[string]punch.UploadBatch)}
}

func (r *UploadRepository) Create(ctx context.Context, b punch.UploadBatch) (punch.UploadBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	r.batches[b.ID] = b
	r.order = append(r.order, b.ID)
	return b, nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (punch.UploadBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[id]
	if !ok {
		return punch.UploadBatch{}, punch.ErrUploadNotFound
	}
	return b, nil
}

func (r *UploadRepository) ClaimNext(ctx context.Context, staleBefore time.Time) (punch.UploadBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		b := r.batches[id]
		stale := b.Status == punch.UploadStatusProcessing && b.UpdatedAt.Before(staleBefore)
		if b.Status != punch.UploadStatusPending && !stale {
			continue
		}
		b.Status = punch.UploadStatusProcessing
		b.UpdatedAt = now()
		r.batches[id] = b
		return b, nil
	}
	return punch.UploadBatch{}, punch.ErrNoPendingUpload
}

func (r *UploadRepository) Release(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[id]
	if !ok || b.Status != punch.UploadStatusProcessing {
		return punch.ErrUploadNotFound
	}
	b.Status = punch.UploadStatusPending
	b.UpdatedAt = now()
	r.batches[id] = b
	return nil
}

func (r *UploadRepository) Finish(ctx context.Context, id string, status punch.UploadStatus, summary *punch.IngestResult, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[id]
	if !ok {
		return punch.ErrUploadNotFound
	}
	t := now()
	b.Status = status
	b.Summary = summary
	b.Error = errMsg
	b.ProcessedAt = &t
	b.UpdatedAt = t
	r.batches[id] = b
	return nil
}
