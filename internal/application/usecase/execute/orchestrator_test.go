package execute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type mockBackend struct {
	port.Backend // 未用到的方法 panic 即可

	mu      sync.Mutex
	calls   int
	capital float64
	block   chan struct{} // 非 nil 时调用阻塞直到关闭
	execErr error
	result  *port.ExecutionResult
}

func (m *mockBackend) ExecuteOpportunity(_ context.Context, id string, capitalUsd float64) (*port.ExecutionResult, error) {
	m.mu.Lock()
	m.calls++
	m.capital = capitalUsd
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.execErr != nil {
		return nil, m.execErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &port.ExecutionResult{PositionID: "pos-" + id}, nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (m *mockCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (m *mockCache) Set(context.Context, string, []byte) error         { return nil }
func (m *mockCache) Close() error                                      { return nil }

func (m *mockCache) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, keys...)
	return nil
}

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }
func (f fixedClock) Every(time.Duration, func(time.Time)) func() {
	return func() {}
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func liveOpp() *model.Opportunity {
	return &model.Opportunity{
		ID:                 "opp-1",
		Symbol:             "BTCUSDT",
		RecommendedSizeUsd: 500,
		ExpiresAt:          testNow.Add(time.Hour),
		HasExpiry:          true,
	}
}

func newTestOrchestrator(backend *mockBackend, cache *mockCache) *Orchestrator {
	return NewOrchestrator(backend, cache, fixedClock{now: testNow})
}

func TestSubmitHappyPath(t *testing.T) {
	backend := &mockBackend{}
	cache := &mockCache{}
	o := newTestOrchestrator(backend, cache)

	if err := o.Confirm(liveOpp()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := o.Submit(context.Background(), 250); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	run := o.Snapshot()
	if run.Stage != StageSucceeded {
		t.Fatalf("stage: got %s want succeeded", run.Stage)
	}
	if run.CapitalUsd != 250 {
		t.Errorf("capital: got %v want 250", run.CapitalUsd)
	}
	if run.Result == nil || run.Result.PositionID != "pos-opp-1" {
		t.Errorf("result wrong: %+v", run.Result)
	}
}

// TestSubmitCapitalFallback 资金量缺省取建议仓位，再兜底 100
func TestSubmitCapitalFallback(t *testing.T) {
	backend := &mockBackend{}
	o := newTestOrchestrator(backend, &mockCache{})

	_ = o.Confirm(liveOpp())
	_ = o.Submit(context.Background(), 0)
	if backend.capital != 500 {
		t.Errorf("capital: got %v want recommended 500", backend.capital)
	}

	_ = o.Reset()
	noRec := liveOpp()
	noRec.RecommendedSizeUsd = 0
	_ = o.Confirm(noRec)
	_ = o.Submit(context.Background(), 0)
	if backend.capital != model.DefaultCapitalUsd {
		t.Errorf("capital: got %v want default %v", backend.capital, model.DefaultCapitalUsd)
	}
}

func TestSubmitNegativeCapitalBlocked(t *testing.T) {
	backend := &mockBackend{}
	o := newTestOrchestrator(backend, &mockCache{})

	_ = o.Confirm(liveOpp())
	if err := o.Submit(context.Background(), -5); !errors.Is(err, ErrInvalidCapital) {
		t.Fatalf("expected ErrInvalidCapital, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("blocked submit must not hit backend")
	}
}

func TestConfirmExpiredBlocked(t *testing.T) {
	o := newTestOrchestrator(&mockBackend{}, &mockCache{})

	expired := liveOpp()
	expired.ExpiresAt = testNow.Add(-time.Second)
	if err := o.Confirm(expired); !errors.Is(err, ErrOpportunityGone) {
		t.Fatalf("expected ErrOpportunityGone, got %v", err)
	}
}

func TestSubmitWithoutConfirm(t *testing.T) {
	o := newTestOrchestrator(&mockBackend{}, &mockCache{})
	if err := o.Submit(context.Background(), 100); !errors.Is(err, ErrNotConfirming) {
		t.Fatalf("expected ErrNotConfirming, got %v", err)
	}
}

// TestSubmitSingleFlight 在途提交期间二次 Submit 同步拒绝，后端只收到一次调用
func TestSubmitSingleFlight(t *testing.T) {
	backend := &mockBackend{block: make(chan struct{})}
	o := newTestOrchestrator(backend, &mockCache{})

	_ = o.Confirm(liveOpp())

	done := make(chan error, 1)
	go func() { done <- o.Submit(context.Background(), 100) }()

	// 等首个提交进入 submitting
	for i := 0; i < 100; i++ {
		if o.Snapshot().Stage == StageSubmitting {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if o.Snapshot().Stage != StageSubmitting {
		t.Fatalf("first submit never entered submitting")
	}

	if err := o.Submit(context.Background(), 100); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	if err := o.Reset(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("reset during submit should be rejected, got %v", err)
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if backend.callCount() != 1 {
		t.Errorf("backend calls: got %d want exactly 1", backend.callCount())
	}
}

// TestSubmitBackendErrorVerbatim 后端错误原文进入终态 failed，不自动重试
func TestSubmitBackendErrorVerbatim(t *testing.T) {
	backend := &mockBackend{execErr: errors.New("insufficient margin on bybit")}
	cache := &mockCache{}
	o := newTestOrchestrator(backend, cache)

	_ = o.Confirm(liveOpp())
	if err := o.Submit(context.Background(), 100); err != nil {
		t.Fatalf("backend failure is terminal state, not an error return: %v", err)
	}

	run := o.Snapshot()
	if run.Stage != StageFailed {
		t.Fatalf("stage: got %s want failed", run.Stage)
	}
	if run.Error != "insufficient margin on bybit" {
		t.Errorf("error not verbatim: %q", run.Error)
	}
	if backend.callCount() != 1 {
		t.Errorf("no retry allowed: got %d calls", backend.callCount())
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("failed run must not invalidate cache: %v", cache.invalidated)
	}

	// 终态后必须 Reset 才能重来
	if err := o.Submit(context.Background(), 100); !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v", err)
	}
	if err := o.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if o.Snapshot().Stage != StageIdle {
		t.Errorf("reset should return to idle")
	}
}

// TestSubmitInvalidatesExactKeys 成功执行精确失效三个键，各一次
func TestSubmitInvalidatesExactKeys(t *testing.T) {
	cache := &mockCache{}
	o := newTestOrchestrator(&mockBackend{}, cache)

	_ = o.Confirm(liveOpp())
	if err := o.Submit(context.Background(), 100); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	want := map[string]int{
		port.CacheKeyOpportunities:        1,
		port.CacheKeyPositions:            1,
		port.CacheKeyOpportunity("opp-1"): 1,
	}
	got := make(map[string]int)
	for _, k := range cache.invalidated {
		got[k]++
	}
	if len(got) != len(want) {
		t.Fatalf("invalidated keys: got %v want %v", got, want)
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("key %s: invalidated %d times, want %d", k, got[k], n)
		}
	}
}

func TestSubmitExpiredBetweenConfirmAndSubmit(t *testing.T) {
	backend := &mockBackend{}
	sched := &movableClock{now: testNow}
	o := NewOrchestrator(backend, &mockCache{}, sched)

	opp := liveOpp()
	opp.ExpiresAt = testNow.Add(time.Minute)
	_ = o.Confirm(opp)

	sched.now = testNow.Add(2 * time.Minute)
	if err := o.Submit(context.Background(), 100); !errors.Is(err, ErrOpportunityGone) {
		t.Fatalf("expected ErrOpportunityGone, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("expired submit must not hit backend")
	}
	// blocked 不是终态，仍停留在 confirming
	if o.Snapshot().Stage != StageConfirming {
		t.Errorf("stage: got %s want confirming", o.Snapshot().Stage)
	}
}

type movableClock struct{ now time.Time }

func (m *movableClock) Now() time.Time { return m.now }
func (m *movableClock) Every(time.Duration, func(time.Time)) func() {
	return func() {}
}
