package model

import (
	"strings"
	"time"
)

// ========== Position Models ==========

// Side 腿方向的规范枚举。后端混用 long/short 和 buy/sell 两套词表，
// 在模型边界统一归一化，下游逻辑不再接触原始字符串
type Side int

const (
	SideUnknown Side = iota
	SideLong
	SideShort
)

// ParseSide 归一化腿方向（long/buy -> SideLong, short/sell -> SideShort）
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return SideLong
	case "short", "sell":
		return SideShort
	default:
		return SideUnknown
	}
}

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "unknown"
	}
}

// LegType 腿类型
const (
	LegPrimary = "primary"
	LegHedge   = "hedge"
)

// PositionLeg 持仓的一条腿（单交易所方向敞口）
type PositionLeg struct {
	ID               string  `json:"id"`
	LegType          string  `json:"leg_type"` // primary, hedge
	Exchange         string  `json:"exchange"`
	Side             Side    `json:"side"`
	Quantity         float64 `json:"quantity"`
	EntryPrice       float64 `json:"entry_price"`
	CurrentPrice     float64 `json:"current_price"`
	NotionalValueUsd float64 `json:"notional_value_usd"`
	UnrealizedPnl    float64 `json:"unrealized_pnl"`
	FundingPnl       float64 `json:"funding_pnl"`
}

// Position 套利持仓。聚合字段可能与腿求和不一致（后端为准，
// 聚合缺失或为零时回退为腿求和，见 ConsolidatedPosition）
type Position struct {
	ID                      string        `json:"id"`
	Symbol                  string        `json:"symbol"`
	Status                  string        `json:"status"`        // active, closed
	HealthStatus            string        `json:"health_status"` // healthy, warning, critical, unknown
	Legs                    []PositionLeg `json:"legs"`
	TotalCapitalDeployed    float64       `json:"total_capital_deployed"`
	UnrealizedPnl           float64       `json:"unrealized_pnl"`
	NetFundingPnl           float64       `json:"net_funding_pnl"`
	ReturnPct               float64       `json:"return_pct"`
	FundingPeriodsCollected int           `json:"funding_periods_collected"`
	OpenedAt                time.Time     `json:"opened_at"`
}

// LegView 合并视图里的单腿投影（数值已兜底为 0，不向外传播 NaN）
type LegView struct {
	Exchange      string  `json:"exchange"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	NotionalUsd   float64 `json:"notional_usd"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	FundingPnl    float64 `json:"funding_pnl"`
	Found         bool    `json:"found"` // 该方向是否存在腿
}

// ConsolidatedPosition 持仓合并视图：从无序腿列表推导出多/空腿对与净盈亏
type ConsolidatedPosition struct {
	ID                      string    `json:"id"`
	Symbol                  string    `json:"symbol"`
	Status                  string    `json:"status"`
	HealthStatus            string    `json:"health_status"`
	LongLeg                 LegView   `json:"long_leg"`
	ShortLeg                LegView   `json:"short_leg"`
	NetPnl                  float64   `json:"net_pnl"`
	NetFundingPnl           float64   `json:"net_funding_pnl"`
	TotalCapitalDeployed    float64   `json:"total_capital_deployed"`
	ReturnPct               float64   `json:"return_pct"`
	FundingPeriodsCollected int       `json:"funding_periods_collected"`
	OpenedAt                time.Time `json:"opened_at"`
}

// PositionStats 合并持仓集合的汇总统计
type PositionStats struct {
	PositionCount    int     `json:"position_count"`
	TotalCapital     float64 `json:"total_capital"`
	TotalNetPnl      float64 `json:"total_net_pnl"`
	TotalFundingPnl  float64 `json:"total_funding_pnl"`
	AvgReturnPct     float64 `json:"avg_return_pct"` // 空集合为 0，不做除零
}
