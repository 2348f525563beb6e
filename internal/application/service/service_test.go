package service

import (
	"context"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func fptr(v float64) *float64 { return &v }

// mockBackend 计数每个端点的调用次数，用于断言缓存命中
type mockBackend struct {
	mu sync.Mutex

	opportunities []*model.Opportunity
	positions     []*model.Position
	exchanges     []model.Exchange
	fundingRows   []model.FundingRow
	status        *model.BotStatus

	listOppCalls   int
	listPosCalls   int
	closeCalls     int
	closedID       string
	listExchCalls  int
	listRatesCalls int
	statusCalls    int
}

func (m *mockBackend) ListOpportunities(context.Context, port.OpportunityQuery) ([]*model.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listOppCalls++
	return m.opportunities, nil
}

func (m *mockBackend) GetOpportunity(_ context.Context, id string) (*model.Opportunity, error) {
	for _, o := range m.opportunities {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockBackend) ExecuteOpportunity(context.Context, string, float64) (*port.ExecutionResult, error) {
	return &port.ExecutionResult{}, nil
}

func (m *mockBackend) ListPositions(context.Context, port.PositionQuery) ([]*model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listPosCalls++
	return m.positions, nil
}

func (m *mockBackend) ClosePosition(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	m.closedID = id
	return nil
}

func (m *mockBackend) ListExchanges(context.Context) ([]model.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listExchCalls++
	return m.exchanges, nil
}

func (m *mockBackend) ListFundingRates(context.Context) ([]model.FundingRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listRatesCalls++
	return m.fundingRows, nil
}

func (m *mockBackend) GetSystemStatus(context.Context) (*model.BotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.status, nil
}

func (m *mockBackend) StartBot(context.Context) error { return nil }
func (m *mockBackend) StopBot(context.Context) error  { return nil }

var _ port.Backend = (*mockBackend)(nil)

// mockCache 无 TTL 的 map 缓存，记录失效的键
type mockCache struct {
	mu          sync.Mutex
	m           map[string][]byte
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{m: make(map[string][]byte)}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *mockCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.m, key)
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}

func (c *mockCache) Close() error { return nil }

var _ port.QueryCache = (*mockCache)(nil)
