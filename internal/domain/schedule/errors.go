package schedule

import "errors"

var (
	ErrScheduleNotFound = errors.New("no active schedule found")
	ErrInvalidClock     = errors.New("invalid clock time, use HH:MM")
)
