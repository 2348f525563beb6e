package service

import (
	"context"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/domain/service"
)

func oppFixture() []*model.Opportunity {
	return []*model.Opportunity{
		{ID: "1", Symbol: "BTCUSDT", Score: 80, Status: model.OpportunityActive},
		{ID: "2", Symbol: "ETHUSDT", Score: 95, Status: model.OpportunityActive},
		{ID: "3", Symbol: "SOLUSDT", Score: 60, Status: model.OpportunityExecuted},
	}
}

func TestOpportunityListSortedByScoreDesc(t *testing.T) {
	backend := &mockBackend{opportunities: oppFixture()}
	svc := NewOpportunityService(backend, newMockCache())

	got, err := svc.List(context.Background(), ListQuery{SortDesc: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 3 || got[0].ID != "2" || got[1].ID != "1" || got[2].ID != "3" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

// TestOpportunityListCachesSingleSnapshot 状态分组在同一快照上本地推导，
// 后端只被打一次
func TestOpportunityListCachesSingleSnapshot(t *testing.T) {
	backend := &mockBackend{opportunities: oppFixture()}
	cache := newMockCache()
	svc := NewOpportunityService(backend, cache)
	ctx := context.Background()

	if _, err := svc.List(ctx, ListQuery{}); err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	active, err := svc.List(ctx, ListQuery{Status: model.OpportunityActive})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	executed, err := svc.List(ctx, ListQuery{Status: model.OpportunityExecuted})
	if err != nil {
		t.Fatalf("list executed failed: %v", err)
	}

	if backend.listOppCalls != 1 {
		t.Errorf("backend calls: got %d want 1", backend.listOppCalls)
	}
	if len(active) != 2 || len(executed) != 1 {
		t.Errorf("status views wrong: active=%d executed=%d", len(active), len(executed))
	}
	if _, ok := cache.m[port.CacheKeyOpportunities]; !ok {
		t.Errorf("snapshot key missing from cache")
	}
}

// TestOpportunityListRefetchesAfterInvalidate 失效快照键后回源
func TestOpportunityListRefetchesAfterInvalidate(t *testing.T) {
	backend := &mockBackend{opportunities: oppFixture()}
	cache := newMockCache()
	svc := NewOpportunityService(backend, cache)
	ctx := context.Background()

	_, _ = svc.List(ctx, ListQuery{})
	_ = cache.Invalidate(ctx, port.CacheKeyOpportunities)
	_, _ = svc.List(ctx, ListQuery{})

	if backend.listOppCalls != 2 {
		t.Errorf("backend calls: got %d want 2", backend.listOppCalls)
	}
}

func TestOpportunityListFilterDoesNotMutateCache(t *testing.T) {
	backend := &mockBackend{opportunities: oppFixture()}
	svc := NewOpportunityService(backend, newMockCache())
	ctx := context.Background()

	got, _ := svc.List(ctx, ListQuery{Filter: service.OpportunityFilter{MinScore: fptr(90)}})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("filtered view wrong: %+v", got)
	}

	// 第二次无过滤查询必须看到完整快照
	all, _ := svc.List(ctx, ListQuery{})
	if len(all) != 3 {
		t.Errorf("full snapshot polluted: got %d rows", len(all))
	}
}

func TestOpportunityGet(t *testing.T) {
	backend := &mockBackend{opportunities: oppFixture()}
	cache := newMockCache()
	svc := NewOpportunityService(backend, cache)

	got, err := svc.Get(context.Background(), "2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Symbol != "ETHUSDT" {
		t.Errorf("wrong opportunity: %+v", got)
	}
	if _, ok := cache.m[port.CacheKeyOpportunity("2")]; !ok {
		t.Errorf("per-id key missing from cache")
	}
}
