package execute

import (
	"context"
	"errors"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Stage 执行编排器状态机阶段
type Stage string

const (
	StageIdle       Stage = "idle"
	StageConfirming Stage = "confirming"
	StageSubmitting Stage = "submitting"
	StageSucceeded  Stage = "succeeded"
	StageFailed     Stage = "failed"
)

// 校验失败是 blocked：发生在任何网络调用之前，与后端失败（failed）严格区分
var (
	ErrNotConfirming   = errors.New("no opportunity confirmed")
	ErrSubmitInFlight  = errors.New("execution already submitting")
	ErrRunFinished     = errors.New("run already finished, reset before retrying")
	ErrOpportunityGone = errors.New("opportunity expired, execution blocked")
	ErrInvalidCapital  = errors.New("capital must be positive")
)

// Run 一次用户触发执行的瞬态状态。不落库，终态后由调用方 Reset 丢弃
type Run struct {
	ID            string                `json:"id"`
	OpportunityID string                `json:"opportunity_id"`
	CapitalUsd    float64               `json:"capital_usd"`
	Stage         Stage                 `json:"stage"`
	Error         string                `json:"error,omitempty"`
	Result        *port.ExecutionResult `json:"result,omitempty"`
}

// Orchestrator 执行编排器：idle → confirming → submitting → succeeded|failed。
// 不自动重试（重复下单的风险高于瞬时故障恢复），失败后必须由用户从 idle 重新发起。
// 同一实例同时最多一笔在途提交，二次 Submit 同步拒绝，杜绝双击双花
type Orchestrator struct {
	mu      sync.Mutex
	backend port.Backend
	cache   port.QueryCache
	sched   port.Scheduler

	run Run
	opp *model.Opportunity
}

func NewOrchestrator(backend port.Backend, cache port.QueryCache, sched port.Scheduler) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		cache:   cache,
		sched:   sched,
		run:     Run{Stage: StageIdle},
	}
}

// Confirm 用户选中机会，进入确认阶段。已过期的机会直接拒绝
func (o *Orchestrator) Confirm(opp *model.Opportunity) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.run.Stage {
	case StageSubmitting:
		return ErrSubmitInFlight
	case StageSucceeded, StageFailed:
		return ErrRunFinished
	}

	if opp.IsExpired(o.sched.Now()) {
		return ErrOpportunityGone
	}

	o.opp = opp
	o.run = Run{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		Stage:         StageConfirming,
	}
	return nil
}

// Submit 发起执行。资金量缺省取机会的建议仓位（再兜底 100），
// 负值在网络调用前拒绝。后端调用整个生命周期内只发生一次：
// 过期只阻止进入 submitting，在途调用不会被取消（后端已承诺处理）
func (o *Orchestrator) Submit(ctx context.Context, capitalUsd float64) error {
	o.mu.Lock()
	switch o.run.Stage {
	case StageSubmitting:
		o.mu.Unlock()
		return ErrSubmitInFlight
	case StageSucceeded, StageFailed:
		o.mu.Unlock()
		return ErrRunFinished
	case StageIdle:
		o.mu.Unlock()
		return ErrNotConfirming
	}

	if capitalUsd < 0 {
		o.mu.Unlock()
		return ErrInvalidCapital
	}

	opp := o.opp
	if opp.IsExpired(o.sched.Now()) {
		o.mu.Unlock()
		return ErrOpportunityGone
	}

	capital := opp.CapitalOrDefault(capitalUsd)
	o.run.CapitalUsd = capital
	o.run.Stage = StageSubmitting
	runID := o.run.ID
	o.mu.Unlock()

	log.Info().
		Str("run_id", runID).
		Str("opportunity_id", opp.ID).
		Str("symbol", opp.Symbol).
		Float64("capital_usd", capital).
		Msg("execution submitting")

	// 网络调用不持锁；不重试
	result, err := o.backend.ExecuteOpportunity(ctx, opp.ID, capital)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		// 后端错误原文进入终态，展示层原样渲染
		o.run.Stage = StageFailed
		o.run.Error = err.Error()
		log.Error().Str("run_id", runID).Err(err).Msg("execution failed")
		return nil
	}

	o.run.Stage = StageSucceeded
	o.run.Result = result

	// 成功后的缓存失效是正确性要求：机会列表、持仓列表、该机会单查
	keys := []string{
		port.CacheKeyOpportunities,
		port.CacheKeyPositions,
		port.CacheKeyOpportunity(opp.ID),
	}
	if err := o.cache.Invalidate(ctx, keys...); err != nil {
		log.Warn().Str("run_id", runID).Err(err).Msg("post-execution invalidate failed")
	}

	log.Info().
		Str("run_id", runID).
		Str("position_id", result.PositionID).
		Msg("execution succeeded")
	return nil
}

// Reset 丢弃终态 run，回到 idle。在途提交期间不可重置
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run.Stage == StageSubmitting {
		return ErrSubmitInFlight
	}
	o.opp = nil
	o.run = Run{Stage: StageIdle}
	return nil
}

// Snapshot 返回当前 run 的副本供渲染
func (o *Orchestrator) Snapshot() Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run
}
