package punch

import "time"

// PunchEvent is one archived biometric scan. It is never mutated after insert.
type PunchEvent struct {
	ID             string
	EmployeeID     *string
	DeviceName     string
	NormalizedName string
	SiteID         string
	PunchedAt      time.Time
	DeviceSeq      int64
	UploadID       string
	CreatedAt      time.Time
}

// IsMatched reports whether the punch was resolved to an employee at ingest.
func (p PunchEvent) IsMatched() bool {
	return p.EmployeeID != nil && *p.EmployeeID != ""
}

// RawPunch is a parsed line of a device log before employee matching.
type RawPunch struct {
	Line       int
	DeviceSeq  int64
	DeviceName string
	PunchedAt  time.Time
}

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusPartial    UploadStatus = "partial" // archived, some employees failed to reconcile
	UploadStatusFailed     UploadStatus = "failed"
)

// UploadBatch is one uploaded device log, processed as a single unit of work.
type UploadBatch struct {
	ID          string
	SiteID      string
	DateFrom    time.Time
	DateTo      time.Time
	UploadedBy  string
	StoragePath string
	Status      UploadStatus
	Summary     *IngestResult
	Error       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}
