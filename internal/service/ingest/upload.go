package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/storage"
	"github.com/google/uuid"
)

type UploadConfig struct {
	MaxSize   int64         // bytes, default 10MB
	BatchSize int           // batches processed per job run, default 5
	Lease     time.Duration // processing batches older than this are claimed again, default 30m
	Location  *time.Location
}

type UploadServiceImpl struct {
	uploads    punch.UploadRepository
	storage    storage.FileStorage
	ingest     punch.IngestService
	authorizer auth.Authorizer
	trigger    func()
	config     UploadConfig
	now        func() time.Time
}

// NewUploadService wires the upload flow. trigger, when set, is called after
// a batch is queued so the ingest job runs without waiting for its interval.
func NewUploadService(
	uploads punch.UploadRepository,
	fileStorage storage.FileStorage,
	ingest punch.IngestService,
	authorizer auth.Authorizer,
	trigger func(),
	cfg UploadConfig,
) *UploadServiceImpl {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10 << 20
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.Lease == 0 {
		cfg.Lease = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &UploadServiceImpl{
		uploads:    uploads,
		storage:    fileStorage,
		ingest:     ingest,
		authorizer: authorizer,
		trigger:    trigger,
		config:     cfg,
		now:        time.Now,
	}
}

func (s *UploadServiceImpl) CreateUpload(ctx context.Context, actor auth.Actor, req punch.CreateUploadRequest, content io.Reader) (punch.UploadResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPunchUpload); err != nil {
		return punch.UploadResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return punch.UploadResponse{}, err
	}
	if req.Size > s.config.MaxSize {
		return punch.UploadResponse{}, punch.ErrUploadTooLarge
	}
	from, _ := time.ParseInLocation("2006-01-02", req.DateFrom, s.config.Location)
	to, _ := time.ParseInLocation("2006-01-02", req.DateTo, s.config.Location)

	id, err := uuid.NewV7()
	if err != nil {
		return punch.UploadResponse{}, fmt.Errorf("generate upload id: %w", err)
	}

	path, err := s.storage.Upload(ctx, io.LimitReader(content, s.config.MaxSize), storage.PunchLogPath(req.SiteID, id.String()))
	if err != nil {
		return punch.UploadResponse{}, fmt.Errorf("store punch log: %w", err)
	}

	batch, err := s.uploads.Create(ctx, punch.UploadBatch{
		ID:          id.String(),
		SiteID:      req.SiteID,
		DateFrom:    from,
		DateTo:      to,
		UploadedBy:  actor.UserID,
		StoragePath: path,
		Status:      punch.UploadStatusPending,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			slog.Warn("Failed to remove orphaned punch log", "path", path, "error", delErr)
		}
		return punch.UploadResponse{}, fmt.Errorf("create upload batch: %w", err)
	}

	slog.Info("Punch log queued", "upload_id", batch.ID, "site_id", batch.SiteID, "uploaded_by", actor.UserID, "file", req.FileName)
	if s.trigger != nil {
		s.trigger()
	}

	return newUploadResponse(batch), nil
}

func (s *UploadServiceImpl) GetUpload(ctx context.Context, actor auth.Actor, id string) (punch.UploadResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPunchUpload); err != nil {
		return punch.UploadResponse{}, err
	}
	batch, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return punch.UploadResponse{}, err
	}
	return newUploadResponse(batch), nil
}

// ProcessPending claims queued batches one at a time and ingests them. A
// failing batch is recorded as failed and does not stop the others.
func (s *UploadServiceImpl) ProcessPending(ctx context.Context) error {
	for i := 0; i < s.config.BatchSize; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := s.uploads.ClaimNext(ctx, s.now().Add(-s.config.Lease))
		if errors.Is(err, punch.ErrNoPendingUpload) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim pending upload: %w", err)
		}
		s.processBatch(ctx, b)
	}
	return nil
}

func (s *UploadServiceImpl) processBatch(ctx context.Context, b punch.UploadBatch) {
	start := s.now()
	status, summary, procErr := s.runBatch(ctx, b)

	// The outcome is written even when ctx was cancelled mid-run.
	writeCtx := context.WithoutCancel(ctx)

	if procErr != nil && ctx.Err() != nil {
		// Archiving is idempotent, so an interrupted batch is simply run again.
		if err := s.uploads.Release(writeCtx, b.ID); err != nil {
			slog.Error("Failed to requeue interrupted upload", "upload_id", b.ID, "error", err)
			return
		}
		slog.Warn("Punch log ingest interrupted, requeued", "upload_id", b.ID, "error", procErr)
		return
	}

	var errMsg *string
	if procErr != nil {
		msg := procErr.Error()
		errMsg = &msg
	}
	if err := s.uploads.Finish(writeCtx, b.ID, status, summary, errMsg); err != nil {
		slog.Error("Failed to record upload result", "upload_id", b.ID, "error", err)
		return
	}

	attrs := []any{"upload_id", b.ID, "status", status, "duration", s.now().Sub(start)}
	if procErr != nil {
		slog.Error("Punch log ingest failed", append(attrs, "error", procErr)...)
		return
	}
	slog.Info("Punch log ingested", attrs...)
}

func (s *UploadServiceImpl) runBatch(ctx context.Context, b punch.UploadBatch) (punch.UploadStatus, *punch.IngestResult, error) {
	raw, err := storage.ReadAll(ctx, s.storage, b.StoragePath, s.config.MaxSize)
	if err != nil {
		return punch.UploadStatusFailed, nil, fmt.Errorf("read punch log: %w", err)
	}

	result, err := s.ingest.Ingest(ctx, punch.IngestRequest{
		UploadID:   b.ID,
		RawText:    string(raw),
		DateFrom:   b.DateFrom,
		DateTo:     b.DateTo,
		SiteID:     b.SiteID,
		UploadedBy: b.UploadedBy,
	})
	if err != nil {
		// Diagnostics collected before the failure are kept for the uploader.
		if errors.Is(err, punch.ErrNoValidRecords) || errors.Is(err, punch.ErrEmptyPunchLog) {
			return punch.UploadStatusFailed, &result, err
		}
		if result.ArchivedCount > 0 {
			return punch.UploadStatusPartial, &result, err
		}
		return punch.UploadStatusFailed, &result, err
	}

	if len(result.Reconcile.FailedEmployees) > 0 {
		return punch.UploadStatusPartial, &result, nil
	}
	return punch.UploadStatusCompleted, &result, nil
}

func newUploadResponse(b punch.UploadBatch) punch.UploadResponse {
	resp := punch.UploadResponse{
		ID:         b.ID,
		SiteID:     b.SiteID,
		DateFrom:   b.DateFrom.Format("2006-01-02"),
		DateTo:     b.DateTo.Format("2006-01-02"),
		UploadedBy: b.UploadedBy,
		Status:     string(b.Status),
		Summary:    b.Summary,
		Error:      b.Error,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
	if b.ProcessedAt != nil {
		p := b.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &p
	}
	return resp
}
