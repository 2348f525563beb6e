package service

import (
	"context"
	"encoding/json"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// PositionService 持仓查询服务：缓存原始持仓快照，按需推导合并视图与统计
type PositionService struct {
	backend port.Backend
	cache   port.QueryCache
	sf      singleflight.Group
}

func NewPositionService(backend port.Backend, cache port.QueryCache) *PositionService {
	return &PositionService{backend: backend, cache: cache}
}

// List 返回合并后的持仓视图（status 为空返回全部）
func (s *PositionService) List(ctx context.Context, status string) ([]model.ConsolidatedPosition, error) {
	raw, err := s.listRaw(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.ConsolidatedPosition, 0, len(raw))
	for _, pos := range raw {
		if status != "" && pos.Status != status {
			continue
		}
		out = append(out, service.Consolidate(pos))
	}
	return out, nil
}

// Stats 返回指定状态持仓的汇总统计
func (s *PositionService) Stats(ctx context.Context, status string) (model.PositionStats, error) {
	list, err := s.List(ctx, status)
	if err != nil {
		return model.PositionStats{}, err
	}
	return service.Aggregate(list), nil
}

// Close 请求后端平仓并失效持仓快照（与执行路径同样的失效纪律）
func (s *PositionService) Close(ctx context.Context, id string) error {
	if err := s.backend.ClosePosition(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, port.CacheKeyPositions); err != nil {
		log.Warn().Err(err).Str("position_id", id).Msg("invalidate positions after close failed")
	}
	log.Info().Str("position_id", id).Msg("position close requested")
	return nil
}

func (s *PositionService) listRaw(ctx context.Context) ([]*model.Position, error) {
	key := port.CacheKeyPositions
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var list []*model.Position
		if json.Unmarshal(b, &list) == nil {
			return list, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		list, err := s.backend.ListPositions(ctx, port.PositionQuery{})
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(list); err == nil {
			if err := s.cache.Set(ctx, key, b); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache set failed")
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Position), nil
}
