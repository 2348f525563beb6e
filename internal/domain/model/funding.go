package model

import "time"

// ========== Funding Matrix Models ==========

// ExchangeStatus 交易所连接状态
const (
	ExchangeConnected    = "connected"
	ExchangeDisconnected = "disconnected"
)

// Exchange 交易所元数据（连通性过滤的数据来源，由配置服务提供）
type Exchange struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Status string `json:"status"` // connected, disconnected
}

// Connected 是否处于已连接状态
func (e Exchange) Connected() bool {
	return e.Status == ExchangeConnected
}

// FundingQuote 单交易所对单币种的资金费率报价
type FundingQuote struct {
	Rate            float64   `json:"rate"`
	Apr             float64   `json:"apr,omitempty"`
	Predicted       float64   `json:"predicted,omitempty"`
	NextFundingTime time.Time `json:"next_funding_time,omitempty"`
}

// FundingRow 资金费率矩阵的一行：一个币种在全部已知交易所上的报价。
// 不变量：Rates 的 key 集合覆盖完整交易所 slug 全集，值可以为 nil（无报价）
type FundingRow struct {
	Symbol      string                   `json:"symbol"`
	Ticker      string                   `json:"ticker,omitempty"`
	DisplayName string                   `json:"display_name,omitempty"`
	Rates       map[string]*FundingQuote `json:"rates"`
	MaxSpread   float64                  `json:"max_spread"`
}

// BotStatus 后端交易引擎运行状态（is_running/running 双别名在入库时归一）
type BotStatus struct {
	Running       bool   `json:"running"`
	Uptime        string `json:"uptime,omitempty"`
	ActiveSince   string `json:"active_since,omitempty"`
	EngineVersion string `json:"engine_version,omitempty"`
}
