package point

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type PointServiceImpl struct {
	tx database.Transactor
	point.Repository
	authorizer auth.Authorizer
	policy     point.Policy
	loc        *time.Location
	now        func() time.Time
}

func NewPointService(tx database.Transactor, repo point.Repository, authorizer auth.Authorizer, policy point.Policy, loc *time.Location) *PointServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &PointServiceImpl{
		tx:         tx,
		Repository: repo,
		authorizer: authorizer,
		policy:     policy,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *PointServiceImpl) response(p point.Point) point.PointResponse {
	return point.NewPointResponse(p, s.now(), s.policy)
}

// Excuse implements point.Service.
func (s *PointServiceImpl) Excuse(ctx context.Context, actor auth.Actor, req point.ExcuseRequest) (point.PointResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPointExcuse); err != nil {
		return point.PointResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return point.PointResponse{}, err
	}

	var updated point.Point
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.Repository.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if p.IsExcused {
			return point.ErrPointAlreadyExcused
		}
		updated, err = s.Repository.SetExcuse(ctx, p.ID, actor.UserID, req.Reason, s.now())
		return err
	})
	if err != nil {
		return point.PointResponse{}, err
	}

	slog.Info("Attendance point excused", "point_id", updated.ID, "employee_id", updated.EmployeeID, "excused_by", actor.UserID)
	return s.response(updated), nil
}

// Unexcuse implements point.Service.
func (s *PointServiceImpl) Unexcuse(ctx context.Context, actor auth.Actor, id string) (point.PointResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPointExcuse); err != nil {
		return point.PointResponse{}, err
	}

	var updated point.Point
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.Repository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsExcused {
			return point.ErrPointNotExcused
		}
		updated, err = s.Repository.ClearExcuse(ctx, p.ID)
		return err
	})
	if err != nil {
		return point.PointResponse{}, err
	}

	slog.Info("Attendance point excuse removed", "point_id", updated.ID, "employee_id", updated.EmployeeID, "actor", actor.UserID)
	return s.response(updated), nil
}

// CreateManual implements point.Service.
func (s *PointServiceImpl) CreateManual(ctx context.Context, actor auth.Actor, req point.CreateManualRequest) (point.PointResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPointManage); err != nil {
		return point.PointResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return point.PointResponse{}, err
	}

	shiftDate, _ := time.ParseInLocation("2006-01-02", req.ShiftDate, s.loc)
	id, err := uuid.NewV7()
	if err != nil {
		return point.PointResponse{}, fmt.Errorf("generate point id: %w", err)
	}
	createdBy := actor.UserID

	created, err := s.Repository.Create(ctx, point.Point{
		ID:         id.String(),
		EmployeeID: req.EmployeeID,
		PointType:  point.Type(req.PointType),
		Points:     req.Points,
		ShiftDate:  shiftDate,
		IsManual:   true,
		ExpiresAt:  s.policy.ExpiresAt(shiftDate),
		CreatedBy:  &createdBy,
		Notes:      req.Notes,
	})
	if err != nil {
		return point.PointResponse{}, fmt.Errorf("create manual point: %w", err)
	}
	return s.response(created), nil
}

// UpdateManual implements point.Service. System points are refused.
func (s *PointServiceImpl) UpdateManual(ctx context.Context, actor auth.Actor, req point.UpdateManualRequest) (point.PointResponse, error) {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPointManage); err != nil {
		return point.PointResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return point.PointResponse{}, err
	}

	var updated point.Point
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.Repository.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if !p.IsManual {
			return point.ErrSystemPointImmutable
		}

		if req.PointType != nil {
			p.PointType = point.Type(*req.PointType)
		}
		if req.Points != nil {
			p.Points = *req.Points
		}
		if req.ShiftDate != nil {
			p.ShiftDate, _ = time.ParseInLocation("2006-01-02", *req.ShiftDate, s.loc)
			p.ExpiresAt = s.policy.ExpiresAt(p.ShiftDate)
		}
		if req.Notes != nil {
			p.Notes = req.Notes
		}

		updated, err = s.Repository.Update(ctx, p)
		return err
	})
	if err != nil {
		return point.PointResponse{}, err
	}
	return s.response(updated), nil
}

// DeleteManual implements point.Service. System points are refused.
func (s *PointServiceImpl) DeleteManual(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Require(ctx, s.authorizer, actor, auth.PermissionPointManage); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.Repository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsManual {
			return point.ErrSystemPointImmutable
		}
		return s.Repository.Delete(ctx, p.ID)
	})
}

// canView lets employees see their own points.
func (s *PointServiceImpl) canView(ctx context.Context, actor auth.Actor, employeeID string) error {
	if actor.EmployeeID != nil && *actor.EmployeeID == employeeID {
		return nil
	}
	return auth.Require(ctx, s.authorizer, actor, auth.PermissionPointView)
}

// ListByEmployee implements point.Service.
func (s *PointServiceImpl) ListByEmployee(ctx context.Context, actor auth.Actor, filter point.ListFilter) (point.ListPointResponse, error) {
	if err := filter.Validate(); err != nil {
		return point.ListPointResponse{}, err
	}
	if err := s.canView(ctx, actor, filter.EmployeeID); err != nil {
		return point.ListPointResponse{}, err
	}
	filter.Now = s.now()

	points, total, err := s.Repository.ListByEmployee(ctx, filter)
	if err != nil {
		return point.ListPointResponse{}, fmt.Errorf("list points: %w", err)
	}

	resp := point.ListPointResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Points:     make([]point.PointResponse, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, point.NewPointResponse(p, filter.Now, s.policy))
	}
	return resp, nil
}

// Statistics implements point.Service. Expiry is judged at the moment of the call.
func (s *PointServiceImpl) Statistics(ctx context.Context, actor auth.Actor, req point.StatisticsRequest) (point.StatisticsResponse, error) {
	from, to, err := req.Parse()
	if err != nil {
		return point.StatisticsResponse{}, err
	}
	if err := s.canView(ctx, actor, req.EmployeeID); err != nil {
		return point.StatisticsResponse{}, err
	}

	now := s.now()
	stats, err := s.Repository.Statistics(ctx, req.EmployeeID, from, to, now, s.policy.GBROEligible)
	if err != nil {
		return point.StatisticsResponse{}, fmt.Errorf("point statistics: %w", err)
	}

	countByType := stats.CountByType
	if countByType == nil {
		countByType = map[point.Type]int{}
	}
	return point.StatisticsResponse{
		EmployeeID:        req.EmployeeID,
		From:              req.From,
		To:                req.To,
		AsOf:              now.Format(time.RFC3339),
		TotalPoints:       stats.TotalPoints,
		ActivePoints:      stats.ActivePoints,
		ExpiredPoints:     stats.ExpiredPoints,
		ExcusedPoints:     stats.ExcusedPoints,
		TotalCount:        stats.TotalCount,
		ActiveCount:       stats.ActiveCount,
		ExpiredCount:      stats.ExpiredCount,
		ExcusedCount:      stats.ExcusedCount,
		CountByType:       countByType,
		GBROEligibleCount: stats.GBROEligibleCount,
	}, nil
}
