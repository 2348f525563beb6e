package port

import (
	"context"

	"fundarb/internal/domain/model"
)

// OpportunityQuery 机会列表查询条件
type OpportunityQuery struct {
	Status string // "" = all
	Limit  int
}

// PositionQuery 持仓列表查询条件
type PositionQuery struct {
	Status string // "" = all, "active", "closed"
}

// ExecutionResult 后端执行成功后返回的持仓与订单确认
type ExecutionResult struct {
	PositionID string       `json:"position_id"`
	PrimaryLeg OrderConfirm `json:"primary_leg"`
	HedgeLeg   OrderConfirm `json:"hedge_leg"`
}

// OrderConfirm 单腿下单确认
type OrderConfirm struct {
	Exchange string `json:"exchange"`
	Side     string `json:"side"`
	OrderID  string `json:"order_id,omitempty"`
}

// Backend 交易引擎协作方（REST 语义契约，与传输细节无关）。
// 本层只消费，不实现引擎本身
type Backend interface {
	ListOpportunities(ctx context.Context, q OpportunityQuery) ([]*model.Opportunity, error)
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	ExecuteOpportunity(ctx context.Context, id string, capitalUsd float64) (*ExecutionResult, error)

	ListPositions(ctx context.Context, q PositionQuery) ([]*model.Position, error)
	ClosePosition(ctx context.Context, id string) error

	ListExchanges(ctx context.Context) ([]model.Exchange, error)
	ListFundingRates(ctx context.Context) ([]model.FundingRow, error)

	GetSystemStatus(ctx context.Context) (*model.BotStatus, error)
	StartBot(ctx context.Context) error
	StopBot(ctx context.Context) error
}
