package port

import "context"

// 缓存键按查询身份划分。执行成功后必须精确失效
// opportunities / positions / opportunity:<id> 三类键（见执行编排器）
const (
	CacheKeyOpportunities = "opportunities"
	CacheKeyPositions     = "positions"
	CacheKeyExchanges     = "exchanges"
	CacheKeyFundingRates  = "funding_rates"
	CacheKeySystemStatus  = "system_status"
)

// CacheKeyOpportunity 单个机会的缓存键
func CacheKeyOpportunity(id string) string {
	return "opportunity:" + id
}

// QueryCache 读多写少的查询快照缓存。
// Get 未命中返回 (nil, false, nil)；Invalidate 对不存在的键是空操作
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, keys ...string) error
	Close() error
}
