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

// FundingView 资金费率矩阵的可见子集（行列均已按条件过滤）
type FundingView struct {
	Columns []model.Exchange
	Rows    []model.FundingRow
}

// MatrixQuery 矩阵视图请求
type MatrixQuery struct {
	ConnectedOnly bool
	SearchTerm    string
}

// FundingService 资金费率矩阵服务：交易所元数据 + 费率快照缓存，行列过滤纯函数化
type FundingService struct {
	backend port.Backend
	cache   port.QueryCache
	sf      singleflight.Group
}

func NewFundingService(backend port.Backend, cache port.QueryCache) *FundingService {
	return &FundingService{backend: backend, cache: cache}
}

// Matrix 返回过滤后的资金费率矩阵视图
func (s *FundingService) Matrix(ctx context.Context, q MatrixQuery) (FundingView, error) {
	exchanges, err := s.Exchanges(ctx)
	if err != nil {
		return FundingView{}, err
	}

	rows, err := s.rows(ctx)
	if err != nil {
		return FundingView{}, err
	}

	cols := service.VisibleColumns(exchanges, q.ConnectedOnly)
	visible := service.VisibleRows(rows, cols, len(exchanges), q.SearchTerm)
	return FundingView{Columns: cols, Rows: visible}, nil
}

// Exchanges 返回交易所全集（连通性过滤的真值来源）
func (s *FundingService) Exchanges(ctx context.Context) ([]model.Exchange, error) {
	key := port.CacheKeyExchanges
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var list []model.Exchange
		if json.Unmarshal(b, &list) == nil {
			return list, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		list, err := s.backend.ListExchanges(ctx)
		if err != nil {
			return nil, err
		}
		s.cachePut(ctx, key, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Exchange), nil
}

func (s *FundingService) rows(ctx context.Context) ([]model.FundingRow, error) {
	key := port.CacheKeyFundingRates
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var list []model.FundingRow
		if json.Unmarshal(b, &list) == nil {
			return list, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		list, err := s.backend.ListFundingRates(ctx)
		if err != nil {
			return nil, err
		}
		s.cachePut(ctx, key, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.FundingRow), nil
}

func (s *FundingService) cachePut(ctx context.Context, key string, val interface{}) {
	b, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
