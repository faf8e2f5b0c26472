package attendance

import "errors"

var (
	ErrRecordNotFound      = errors.New("attendance record not found")
	ErrInvalidStatus       = errors.New("invalid attendance status")
	ErrInvalidTimes        = errors.New("actual_out must be after actual_in")
	ErrInvalidDateRange    = errors.New("from must not be after to")
	ErrReprocessRangeLimit = errors.New("reprocess range is too large")
)
