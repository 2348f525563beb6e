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

// OpportunityService 机会列表查询服务：缓存快照 + 纯函数排序过滤。
// 只缓存完整快照一个键，状态分组（All/Active/Executed）在快照上本地推导，
// 失效时只需失效一个键，杜绝漏失效
type OpportunityService struct {
	backend port.Backend
	cache   port.QueryCache
	sf      singleflight.Group
}

func NewOpportunityService(backend port.Backend, cache port.QueryCache) *OpportunityService {
	return &OpportunityService{backend: backend, cache: cache}
}

// ListQuery 展示层的机会列表请求
type ListQuery struct {
	Status   string // "" = all
	Filter   service.OpportunityFilter
	SortKey  service.SortKey
	SortDesc bool
}

// List 返回排序过滤后的机会列表。过滤排序在快照副本上进行，不污染缓存
func (s *OpportunityService) List(ctx context.Context, q ListQuery) ([]*model.Opportunity, error) {
	raw, err := s.listRaw(ctx)
	if err != nil {
		return nil, err
	}

	if q.Status != "" {
		byStatus := make([]*model.Opportunity, 0, len(raw))
		for _, opp := range raw {
			if opp.Status == q.Status {
				byStatus = append(byStatus, opp)
			}
		}
		raw = byStatus
	}

	out := service.FilterOpportunities(raw, q.Filter)
	key := q.SortKey
	if key == "" {
		key = service.SortByScore
	}
	service.SortOpportunities(out, key, q.SortDesc)
	return out, nil
}

// Get 返回单个机会（独立缓存键，执行成功后单独失效）
func (s *OpportunityService) Get(ctx context.Context, id string) (*model.Opportunity, error) {
	key := port.CacheKeyOpportunity(id)
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var opp model.Opportunity
		if json.Unmarshal(b, &opp) == nil {
			return &opp, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		opp, err := s.backend.GetOpportunity(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cachePut(ctx, key, opp)
		return opp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Opportunity), nil
}

func (s *OpportunityService) listRaw(ctx context.Context) ([]*model.Opportunity, error) {
	key := port.CacheKeyOpportunities
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var list []*model.Opportunity
		if json.Unmarshal(b, &list) == nil {
			return list, nil
		}
	}

	// singleflight 合并并发回源，避免缓存失效后的惊群
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		list, err := s.backend.ListOpportunities(ctx, port.OpportunityQuery{})
		if err != nil {
			return nil, err
		}
		s.cachePut(ctx, key, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Opportunity), nil
}

func (s *OpportunityService) cachePut(ctx context.Context, key string, val interface{}) {
	b, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
