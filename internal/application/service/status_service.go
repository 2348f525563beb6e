package service

import (
	"context"
	"encoding/json"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// StatusService 引擎运行状态查询与启停控制
type StatusService struct {
	backend port.Backend
	cache   port.QueryCache
	sf      singleflight.Group
}

func NewStatusService(backend port.Backend, cache port.QueryCache) *StatusService {
	return &StatusService{backend: backend, cache: cache}
}

// Status 返回引擎运行状态
func (s *StatusService) Status(ctx context.Context) (*model.BotStatus, error) {
	key := port.CacheKeySystemStatus
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var st model.BotStatus
		if json.Unmarshal(b, &st) == nil {
			return &st, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		st, err := s.backend.GetSystemStatus(ctx)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(st); err == nil {
			if err := s.cache.Set(ctx, key, b); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache set failed")
			}
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.BotStatus), nil
}

// Start 启动引擎并失效状态缓存
func (s *StatusService) Start(ctx context.Context) error {
	if err := s.backend.StartBot(ctx); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, port.CacheKeySystemStatus)
}

// Stop 停止引擎并失效状态缓存
func (s *StatusService) Stop(ctx context.Context) error {
	if err := s.backend.StopBot(ctx); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, port.CacheKeySystemStatus)
}
