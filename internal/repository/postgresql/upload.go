package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type uploadRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

func NewUploadRepository(db *database.DB, loc *time.Location) punch.UploadRepository {
	return &uploadRepositoryImpl{db: db, loc: loc}
}

const uploadColumns = `id, site_id, date_from, date_to, uploaded_by, storage_path, status, summary, error,
	created_at, updated_at, processed_at`

func (r *uploadRepositoryImpl) scan(row pgx.Row) (punch.UploadBatch, error) {
	var b punch.UploadBatch
	err := row.Scan(&b.ID, &b.SiteID, &b.DateFrom, &b.DateTo, &b.UploadedBy, &b.StoragePath, &b.Status, &b.Summary, &b.Error,
		&b.CreatedAt, &b.UpdatedAt, &b.ProcessedAt)
	if err != nil {
		return punch.UploadBatch{}, err
	}
	b.DateFrom = dateIn(b.DateFrom, r.loc)
	b.DateTo = dateIn(b.DateTo, r.loc)
	return b, nil
}

// Create implements punch.UploadRepository.
func (r *uploadRepositoryImpl) Create(ctx context.Context, b punch.UploadBatch) (punch.UploadBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO punch_uploads (id, site_id, date_from, date_to, uploaded_by, storage_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query, b.ID, b.SiteID, b.DateFrom, b.DateTo, b.UploadedBy, b.StoragePath, b.Status).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return punch.UploadBatch{}, fmt.Errorf("failed to create upload batch: %w", err)
	}
	return b, nil
}

// GetByID implements punch.UploadRepository.
func (r *uploadRepositoryImpl) GetByID(ctx context.Context, id string) (punch.UploadBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + uploadColumns + ` FROM punch_uploads WHERE id = $1`

	b, err := r.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return punch.UploadBatch{}, punch.ErrUploadNotFound
		}
		return punch.UploadBatch{}, fmt.Errorf("failed to get upload batch: %w", err)
	}
	return b, nil
}

// ClaimNext implements punch.UploadRepository. SKIP LOCKED lets several
// workers claim disjoint batches.
func (r *uploadRepositoryImpl) ClaimNext(ctx context.Context, staleBefore time.Time) (punch.UploadBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE punch_uploads
		SET status = 'processing', updated_at = NOW()
		WHERE id = (
			SELECT id FROM punch_uploads
			WHERE status = 'pending'
				OR (status = 'processing' AND updated_at < $1)
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + uploadColumns

	b, err := r.scan(q.QueryRow(ctx, query, staleBefore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return punch.UploadBatch{}, punch.ErrNoPendingUpload
		}
		return punch.UploadBatch{}, fmt.Errorf("failed to claim upload batch: %w", err)
	}
	return b, nil
}

// Release implements punch.UploadRepository.
func (r *uploadRepositoryImpl) Release(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE punch_uploads
		SET status = 'pending', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to release upload batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return punch.ErrUploadNotFound
	}
	return nil
}

// Finish implements punch.UploadRepository.
func (r *uploadRepositoryImpl) Finish(ctx context.Context, id string, status punch.UploadStatus, summary *punch.IngestResult, errMsg *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE punch_uploads
		SET status = $2, summary = $3, error = $4, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, status, summary, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish upload batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return punch.ErrUploadNotFound
	}
	return nil
}
