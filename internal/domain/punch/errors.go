package punch

import "errors"

var (
	ErrNoValidRecords   = errors.New("punch log contains no valid records")
	ErrEmptyPunchLog    = errors.New("punch log is empty")
	ErrUploadNotFound   = errors.New("upload batch not found")
	ErrNoPendingUpload  = errors.New("no pending upload batch")
	ErrInvalidDateRange = errors.New("date_from must not be after date_to")
	ErrSiteRequired     = errors.New("site_id is required")
	ErrUploadTooLarge   = errors.New("punch log exceeds the maximum upload size")
)
