package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type punchRepositoryImpl struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) punch.Repository {
	return &punchRepositoryImpl{db: db}
}

const punchColumns = `id, employee_id, device_name, normalized_name, site_id, punched_at, device_seq, upload_id, created_at`

func scanPunch(row pgx.Row) (punch.PunchEvent, error) {
	var p punch.PunchEvent
	err := row.Scan(&p.ID, &p.EmployeeID, &p.DeviceName, &p.NormalizedName, &p.SiteID, &p.PunchedAt, &p.DeviceSeq, &p.UploadID, &p.CreatedAt)
	return p, err
}

// InsertBatch implements punch.Repository. Rows colliding with the natural
// key (site, device name, instant) are skipped.
func (r *punchRepositoryImpl) InsertBatch(ctx context.Context, punches []punch.PunchEvent) (int, error) {
	if len(punches) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO punch_events (
			id, employee_id, device_name, normalized_name, site_id, punched_at, device_seq, upload_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT punch_events_natural_key DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, p := range punches {
		batch.Queue(query, p.ID, p.EmployeeID, p.DeviceName, p.NormalizedName, p.SiteID, p.PunchedAt, p.DeviceSeq, p.UploadID)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range punches {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to archive punch %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListByEmployeeRange implements punch.Repository.
func (r *punchRepositoryImpl) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]punch.PunchEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + punchColumns + `
		FROM punch_events
		WHERE employee_id = $1 AND punched_at >= $2 AND punched_at < $3
		ORDER BY punched_at, id
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	return collectPunches(rows)
}

// ListByUpload implements punch.Repository.
func (r *punchRepositoryImpl) ListByUpload(ctx context.Context, uploadID string) ([]punch.PunchEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + punchColumns + `
		FROM punch_events
		WHERE upload_id = $1
		ORDER BY punched_at, id
	`

	rows, err := q.Query(ctx, query, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches by upload: %w", err)
	}
	return collectPunches(rows)
}

func collectPunches(rows pgx.Rows) ([]punch.PunchEvent, error) {
	defer rows.Close()

	var punches []punch.PunchEvent
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}
