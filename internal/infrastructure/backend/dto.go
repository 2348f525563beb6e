package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/domain/service"
)

// numField 宽容的数值字段：接受数字、数字字符串、null。
// 解析失败记为缺失而不是报错——上游载荷质量参差，坏值兜底为 0
type numField struct {
	Value float64
	Set   bool
}

func (n *numField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			n.Value = f
			n.Set = true
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.Value = f
	n.Set = true
	return nil
}

func (n numField) ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

func (n numField) or(def float64) float64 {
	if n.Set {
		return n.Value
	}
	return def
}

// ========== Opportunity DTO ==========

type oppLegDTO struct {
	Exchange    string   `json:"exchange"`
	FundingRate numField `json:"funding_rate"`
}

// opportunityDTO 机会线协议。同一语义值的历史别名全部保留：
// funding_spread_pct/gross_funding_rate、estimated_net_apr/net_apr、
// scores.total/uos_score_direct/uos_score，入库时按既定优先级归一一次
type opportunityDTO struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	LongLeg  oppLegDTO `json:"long_leg"`
	ShortLeg oppLegDTO `json:"short_leg"`

	FundingSpreadPct numField `json:"funding_spread_pct"`
	GrossFundingRate numField `json:"gross_funding_rate"`
	EstimatedNetApr  numField `json:"estimated_net_apr"`
	NetApr           numField `json:"net_apr"`

	Scores *struct {
		Total numField `json:"total"`
	} `json:"scores"`
	UosScoreDirect numField `json:"uos_score_direct"`
	UosScore       numField `json:"uos_score"`

	Status             string   `json:"status"`
	RecommendedSizeUsd numField `json:"recommended_size_usd"`
	ExpiresAt          string   `json:"expires_at"`
}

func (d *opportunityDTO) toModel() *model.Opportunity {
	var scoresTotal *float64
	if d.Scores != nil {
		scoresTotal = d.Scores.Total.ptr()
	}

	opp := &model.Opportunity{
		ID:     d.ID,
		Symbol: d.Symbol,
		LongLeg: model.OpportunityLeg{
			Exchange:    d.LongLeg.Exchange,
			FundingRate: d.LongLeg.FundingRate.or(0),
		},
		ShortLeg: model.OpportunityLeg{
			Exchange:    d.ShortLeg.Exchange,
			FundingRate: d.ShortLeg.FundingRate.or(0),
		},
		FundingSpreadPct:   service.ResolveAlias(d.FundingSpreadPct.ptr(), d.GrossFundingRate.ptr()),
		EstimatedNetApr:    service.ResolveAlias(d.EstimatedNetApr.ptr(), d.NetApr.ptr()),
		Score:              service.ResolveScore(scoresTotal, d.UosScoreDirect.ptr(), d.UosScore.ptr()),
		Status:             d.Status,
		RecommendedSizeUsd: d.RecommendedSizeUsd.or(model.DefaultCapitalUsd),
	}
	opp.ExpiresAt, opp.HasExpiry = model.ParseTimestamp(d.ExpiresAt)
	return opp
}

// ========== Position DTO ==========

type positionLegDTO struct {
	ID               string   `json:"id"`
	LegType          string   `json:"leg_type"`
	Exchange         string   `json:"exchange"`
	Side             string   `json:"side"` // long/short 或 buy/sell
	Quantity         numField `json:"quantity"`
	EntryPrice       numField `json:"entry_price"`
	CurrentPrice     numField `json:"current_price"`
	NotionalValueUsd numField `json:"notional_value_usd"`
	UnrealizedPnl    numField `json:"unrealized_pnl"`
	FundingPnl       numField `json:"funding_pnl"`
}

type positionDTO struct {
	ID                      string           `json:"id"`
	Symbol                  string           `json:"symbol"`
	Status                  string           `json:"status"`
	HealthStatus            string           `json:"health_status"`
	Legs                    []positionLegDTO `json:"legs"`
	TotalCapitalDeployed    numField         `json:"total_capital_deployed"`
	UnrealizedPnl           numField         `json:"unrealized_pnl"`
	NetFundingPnl           numField         `json:"net_funding_pnl"`
	ReturnPct               numField         `json:"return_pct"`
	FundingPeriodsCollected numField         `json:"funding_periods_collected"`
	OpenedAt                string           `json:"opened_at"`
}

func (d *positionDTO) toModel() *model.Position {
	pos := &model.Position{
		ID:                      d.ID,
		Symbol:                  d.Symbol,
		Status:                  d.Status,
		HealthStatus:            d.HealthStatus,
		TotalCapitalDeployed:    d.TotalCapitalDeployed.or(0),
		UnrealizedPnl:           d.UnrealizedPnl.or(0),
		NetFundingPnl:           d.NetFundingPnl.or(0),
		ReturnPct:               d.ReturnPct.or(0),
		FundingPeriodsCollected: int(d.FundingPeriodsCollected.or(0)),
	}
	pos.OpenedAt, _ = model.ParseTimestamp(d.OpenedAt)

	pos.Legs = make([]model.PositionLeg, 0, len(d.Legs))
	for _, leg := range d.Legs {
		pos.Legs = append(pos.Legs, model.PositionLeg{
			ID:               leg.ID,
			LegType:          leg.LegType,
			Exchange:         leg.Exchange,
			Side:             model.ParseSide(leg.Side),
			Quantity:         leg.Quantity.or(0),
			EntryPrice:       leg.EntryPrice.or(0),
			CurrentPrice:     leg.CurrentPrice.or(0),
			NotionalValueUsd: leg.NotionalValueUsd.or(0),
			UnrealizedPnl:    leg.UnrealizedPnl.or(0),
			FundingPnl:       leg.FundingPnl.or(0),
		})
	}
	return pos
}

// ========== Funding Matrix DTO ==========

type fundingQuoteDTO struct {
	Rate            numField `json:"rate"`
	Apr             numField `json:"apr"`
	Predicted       numField `json:"predicted"`
	NextFundingTime string   `json:"next_funding_time"`
}

type fundingRowDTO struct {
	Symbol      string                      `json:"symbol"`
	Ticker      string                      `json:"ticker"`
	DisplayName string                      `json:"display_name"`
	Rates       map[string]*fundingQuoteDTO `json:"rates"`
	MaxSpread   numField                    `json:"max_spread"`
}

func (d *fundingRowDTO) toModel() model.FundingRow {
	row := model.FundingRow{
		Symbol:      d.Symbol,
		Ticker:      d.Ticker,
		DisplayName: d.DisplayName,
		MaxSpread:   d.MaxSpread.or(0),
		Rates:       make(map[string]*model.FundingQuote, len(d.Rates)),
	}
	for slug, q := range d.Rates {
		if q == nil {
			row.Rates[slug] = nil
			continue
		}
		quote := &model.FundingQuote{
			Rate:      q.Rate.or(0),
			Apr:       q.Apr.or(0),
			Predicted: q.Predicted.or(0),
		}
		if t, ok := model.ParseTimestamp(q.NextFundingTime); ok {
			quote.NextFundingTime = t
		}
		row.Rates[slug] = quote
	}
	return row
}

// ========== Execution / Status DTO ==========

type orderConfirmDTO struct {
	Exchange string `json:"exchange"`
	Side     string `json:"side"`
	OrderID  string `json:"order_id"`
}

// executionRespDTO 执行响应。失败可能是 HTTP 错误，也可能是
// success 形状里内嵌失败标志，两种形状都归并为失败终态
type executionRespDTO struct {
	Success    *bool           `json:"success"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	PositionID string          `json:"position_id"`
	PrimaryLeg orderConfirmDTO `json:"primary_leg"`
	HedgeLeg   orderConfirmDTO `json:"hedge_leg"`
}

func (d *executionRespDTO) failureMessage() (string, bool) {
	if d.Success != nil && !*d.Success {
		for _, msg := range []string{d.Error, d.Message} {
			if msg != "" {
				return msg, true
			}
		}
		return "execution rejected by backend", true
	}
	if d.Error != "" {
		return d.Error, true
	}
	return "", false
}

func (d *executionRespDTO) toResult() *port.ExecutionResult {
	return &port.ExecutionResult{
		PositionID: d.PositionID,
		PrimaryLeg: port.OrderConfirm(d.PrimaryLeg),
		HedgeLeg:   port.OrderConfirm(d.HedgeLeg),
	}
}

type exchangeDTO struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// statusDTO 引擎状态。is_running/running 双别名，is_running 优先
type statusDTO struct {
	IsRunning     *bool  `json:"is_running"`
	Running       *bool  `json:"running"`
	Uptime        string `json:"uptime"`
	ActiveSince   string `json:"active_since"`
	EngineVersion string `json:"engine_version"`
}

func (d *statusDTO) toModel() *model.BotStatus {
	st := &model.BotStatus{
		Uptime:        d.Uptime,
		ActiveSince:   d.ActiveSince,
		EngineVersion: d.EngineVersion,
	}
	switch {
	case d.IsRunning != nil:
		st.Running = *d.IsRunning
	case d.Running != nil:
		st.Running = *d.Running
	}
	return st
}
