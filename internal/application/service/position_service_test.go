package service

import (
	"context"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func posFixture() []*model.Position {
	return []*model.Position{
		{
			ID: "p1", Symbol: "BTCUSDT", Status: "active",
			Legs: []model.PositionLeg{
				{Exchange: "binance", Side: model.SideLong, UnrealizedPnl: 50},
				{Exchange: "bybit", Side: model.SideShort, UnrealizedPnl: -40},
			},
			TotalCapitalDeployed: 1000, ReturnPct: 1,
		},
		{
			ID: "p2", Symbol: "ETHUSDT", Status: "closed",
			TotalCapitalDeployed: 500, ReturnPct: 3,
		},
	}
}

func TestPositionListConsolidates(t *testing.T) {
	backend := &mockBackend{positions: posFixture()}
	svc := NewPositionService(backend, newMockCache())

	got, err := svc.List(context.Background(), "active")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("status filter wrong: got %d rows", len(got))
	}
	cp := got[0]
	if cp.LongLeg.Exchange != "binance" || cp.ShortLeg.Exchange != "bybit" {
		t.Errorf("legs wrong: %+v", cp)
	}
	if cp.NetPnl != 10 {
		t.Errorf("netPnl: got %v want 10", cp.NetPnl)
	}
}

func TestPositionStats(t *testing.T) {
	backend := &mockBackend{positions: posFixture()}
	svc := NewPositionService(backend, newMockCache())

	stats, err := svc.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PositionCount != 2 || stats.TotalCapital != 1500 {
		t.Errorf("stats wrong: %+v", stats)
	}
	if stats.AvgReturnPct != 2 {
		t.Errorf("avg return: got %v want 2", stats.AvgReturnPct)
	}
}

func TestPositionListCached(t *testing.T) {
	backend := &mockBackend{positions: posFixture()}
	svc := NewPositionService(backend, newMockCache())
	ctx := context.Background()

	_, _ = svc.List(ctx, "")
	_, _ = svc.List(ctx, "active")
	_, _ = svc.Stats(ctx, "")

	if backend.listPosCalls != 1 {
		t.Errorf("backend calls: got %d want 1", backend.listPosCalls)
	}
}

// TestPositionClose 平仓后失效持仓快照
func TestPositionClose(t *testing.T) {
	backend := &mockBackend{positions: posFixture()}
	cache := newMockCache()
	svc := NewPositionService(backend, cache)
	ctx := context.Background()

	_, _ = svc.List(ctx, "")
	if err := svc.Close(ctx, "p1"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if backend.closedID != "p1" {
		t.Errorf("closed id: got %s", backend.closedID)
	}

	found := false
	for _, k := range cache.invalidated {
		if k == port.CacheKeyPositions {
			found = true
		}
	}
	if !found {
		t.Errorf("positions key not invalidated: %v", cache.invalidated)
	}
}
