package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidPath  = errors.New("invalid file path")
	ErrFileTooLarge = errors.New("file exceeds the maximum size")
)

// FileStorage keeps raw uploaded punch logs until the ingest job reads them.
type FileStorage interface {
	// Upload stores the content under path and returns the stored key.
	Upload(ctx context.Context, file io.Reader, path string) (string, error)

	// Download opens a stored file. Callers close the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)
}

// PunchLogPath is the storage key of an uploaded device log.
func PunchLogPath(siteID, batchID string) string {
	return fmt.Sprintf("punch-logs/%s/%s.txt", siteID, batchID)
}

// ReadAll downloads a file into memory, refusing files larger than maxSize bytes.
func ReadAll(ctx context.Context, s FileStorage, path string, maxSize int64) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}
	return data, nil
}
