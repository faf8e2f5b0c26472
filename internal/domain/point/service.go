package point

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
)

type Service interface {
	Excuse(ctx context.Context, actor auth.Actor, req ExcuseRequest) (PointResponse, error)
	Unexcuse(ctx context.Context, actor auth.Actor, id string) (PointResponse, error)

	CreateManual(ctx context.Context, actor auth.Actor, req CreateManualRequest) (PointResponse, error)
	UpdateManual(ctx context.Context, actor auth.Actor, req UpdateManualRequest) (PointResponse, error)
	DeleteManual(ctx context.Context, actor auth.Actor, id string) error

	ListByEmployee(ctx context.Context, actor auth.Actor, filter ListFilter) (ListPointResponse, error)
	Statistics(ctx context.Context, actor auth.Actor, req StatisticsRequest) (StatisticsResponse, error)
}

// Syncer keeps the system point of a record in line with the record's status.
type Syncer interface {
	Sync(ctx context.Context, record attendance.Record) (SyncOutcome, error)
}
