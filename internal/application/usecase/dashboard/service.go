package dashboard

import (
	"context"
	"errors"
	"time"

	"fundarb/internal/application/port"
	appsvc "fundarb/internal/application/service"
	"fundarb/internal/domain/model"
	"fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
)

type ServiceDeps struct {
	Opportunities *appsvc.OpportunityService
	Positions     *appsvc.PositionService
	Status        *appsvc.StatusService
	Sink          port.Sink
	Sched         port.Scheduler

	RefreshEvery time.Duration
	MinScore     *float64 // nil 表示不过滤评分
	SortKey      service.SortKey
	SortDesc     bool
	UrgentWindow time.Duration
}

// Service 终端看板主循环：定时拉取机会/持仓视图并整帧重绘
type Service struct {
	deps ServiceDeps
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		deps: deps,
		fmt:  NewFormatter(deps.UrgentWindow),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if s.deps.Opportunities == nil || s.deps.Positions == nil || s.deps.Status == nil {
		return errors.New("dashboard: missing services")
	}
	if s.deps.Sink == nil {
		return errors.New("dashboard: missing sink")
	}

	refresh := s.deps.RefreshEvery
	if refresh <= 0 {
		refresh = 10 * time.Second
	}

	// initial frame
	s.renderOnce(ctx)

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()
		case <-ticker.C:
			s.renderOnce(ctx)
		}
	}
}

// renderOnce 拉一次数据渲染一帧；单项失败降级为空视图，不中断循环
func (s *Service) renderOnce(ctx context.Context) {
	now := s.now()

	opps, err := s.deps.Opportunities.List(ctx, appsvc.ListQuery{
		Status:   model.OpportunityActive,
		Filter:   service.OpportunityFilter{MinScore: s.deps.MinScore},
		SortKey:  s.deps.SortKey,
		SortDesc: s.deps.SortDesc,
	})
	if err != nil {
		log.Warn().Err(err).Msg("dashboard: list opportunities failed")
		opps = nil
	}

	positions, err := s.deps.Positions.List(ctx, "active")
	if err != nil {
		log.Warn().Err(err).Msg("dashboard: list positions failed")
		positions = nil
	}

	stats := service.Aggregate(positions)

	running := false
	if st, err := s.deps.Status.Status(ctx); err == nil {
		running = st.Running
	} else {
		log.Warn().Err(err).Msg("dashboard: system status failed")
	}

	frame := s.fmt.RenderFrame(now, running, opps, positions, stats)
	if err := s.deps.Sink.WriteFrame(frame); err != nil {
		log.Warn().Err(err).Msg("dashboard: write frame failed")
	}
}

func (s *Service) now() time.Time {
	if s.deps.Sched != nil {
		return s.deps.Sched.Now()
	}
	return time.Now()
}
