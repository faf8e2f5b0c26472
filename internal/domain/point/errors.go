package point

import "errors"

var (
	ErrPointNotFound        = errors.New("attendance point not found")
	ErrSystemPointImmutable = errors.New("system points can only be changed by reprocessing")
	ErrExcuseReasonRequired = errors.New("excuse reason is required")
	ErrPointAlreadyExcused  = errors.New("attendance point is already excused")
	ErrPointNotExcused      = errors.New("attendance point is not excused")
	ErrInvalidPointType     = errors.New("invalid point type")
	ErrInvalidPointValue    = errors.New("point value must be positive")
)
