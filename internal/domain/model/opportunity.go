package model

import (
	"strings"
	"time"
)

// ========== Opportunity Models ==========

// OpportunityStatus 机会状态（开放集合，未知值原样保留）
const (
	OpportunityDetected = "detected"
	OpportunityActive   = "active"
	OpportunityExecuted = "executed"
	OpportunityExpired  = "expired"
	OpportunityFailed   = "failed"
)

// DefaultCapitalUsd 后端未给出建议仓位时的兜底资金量
const DefaultCapitalUsd = 100

// OpportunityLeg 套利机会的一条腿（交易所 + 资金费率）
type OpportunityLeg struct {
	Exchange    string  `json:"exchange"`
	FundingRate float64 `json:"funding_rate"`
}

// Opportunity 资金费率套利机会（入库前已完成字段别名归一化）
type Opportunity struct {
	ID                 string         `json:"id"`
	Symbol             string         `json:"symbol"`
	LongLeg            OpportunityLeg `json:"long_leg"`
	ShortLeg           OpportunityLeg `json:"short_leg"`
	FundingSpreadPct   float64        `json:"funding_spread_pct"` // 两腿资金费率差（百分比）
	EstimatedNetApr    float64        `json:"estimated_net_apr"`  // 预估净年化
	Score              float64        `json:"score"`              // 归一化后的 UOS 评分
	Status             string         `json:"status"`
	RecommendedSizeUsd float64        `json:"recommended_size_usd"`
	ExpiresAt          time.Time      `json:"expires_at"` // 零值表示无过期时间
	HasExpiry          bool           `json:"has_expiry"`
}

// IsExpired 判断机会在 now 时刻是否已过期；无过期时间视为永不过期
func (o *Opportunity) IsExpired(now time.Time) bool {
	return o.HasExpiry && !o.ExpiresAt.After(now)
}

// CapitalOrDefault 返回执行资金量：参数 > 建议仓位 > 兜底值
func (o *Opportunity) CapitalOrDefault(capitalUsd float64) float64 {
	if capitalUsd > 0 {
		return capitalUsd
	}
	if o.RecommendedSizeUsd > 0 {
		return o.RecommendedSizeUsd
	}
	return DefaultCapitalUsd
}

// ParseTimestamp 解析后端时间戳。无时区后缀的字符串按 UTC 解释
// （后端可能省略 Z 后缀，这个归一化是刚性要求，不能依赖本地时区）
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999", // no offset -> UTC
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
