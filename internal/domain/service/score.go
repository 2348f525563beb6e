package service

import (
	"math"
	"sort"

	"fundarb/internal/domain/model"
)

// ResolveScore 按固定优先级归一化机会评分：
// scores.total > uos_score_direct > uos_score > 0。
// 优先级看字段是否存在，不看取值；缺失/非法一律兜底为 0。
// 在采集边界调用一次，之后所有排序过滤只用归一化后的 Score
func ResolveScore(scoresTotal, uosScoreDirect, uosScore *float64) float64 {
	switch {
	case scoresTotal != nil:
		return safeNum(*scoresTotal)
	case uosScoreDirect != nil:
		return safeNum(*uosScoreDirect)
	case uosScore != nil:
		return safeNum(*uosScore)
	default:
		return 0
	}
}

// ResolveAlias 别名字段回退：primary 存在则用 primary，否则 fallback，都缺为 0
func ResolveAlias(primary, fallback *float64) float64 {
	if primary != nil {
		return safeNum(*primary)
	}
	if fallback != nil {
		return safeNum(*fallback)
	}
	return 0
}

func safeNum(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SortKey 机会列表支持的排序键
type SortKey string

const (
	SortBySymbol    SortKey = "symbol"
	SortBySpread    SortKey = "spread"
	SortByNetApr    SortKey = "netApr"
	SortByScore     SortKey = "score"
	SortByExpiresAt SortKey = "expiresAt"
)

// CompareBy 返回指定键的升序比较器（负=a前，0=相等，正=b前）。
// 降序由调用方取反。未知键退化为 score
func CompareBy(key SortKey) func(a, b *model.Opportunity) int {
	switch key {
	case SortBySymbol:
		return func(a, b *model.Opportunity) int {
			switch {
			case a.Symbol < b.Symbol:
				return -1
			case a.Symbol > b.Symbol:
				return +1
			default:
				return 0
			}
		}
	case SortBySpread:
		return func(a, b *model.Opportunity) int {
			return cmpFloat(a.FundingSpreadPct, b.FundingSpreadPct)
		}
	case SortByNetApr:
		return func(a, b *model.Opportunity) int {
			return cmpFloat(a.EstimatedNetApr, b.EstimatedNetApr)
		}
	case SortByExpiresAt:
		// 无过期时间按 +Inf 处理：升序排最后
		return func(a, b *model.Opportunity) int {
			return cmpFloat(expiryKey(a), expiryKey(b))
		}
	default:
		return func(a, b *model.Opportunity) int {
			return cmpFloat(a.Score, b.Score)
		}
	}
}

// SortOpportunities 按键稳定排序（原地）。稳定性是正确性要求：
// 等值项保持输入顺序，重复排序结果幂等
func SortOpportunities(list []*model.Opportunity, key SortKey, desc bool) {
	cmp := CompareBy(key)
	sort.SliceStable(list, func(i, j int) bool {
		c := cmp(list[i], list[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func expiryKey(o *model.Opportunity) float64 {
	if !o.HasExpiry {
		return math.Inf(+1)
	}
	return float64(o.ExpiresAt.UnixMilli())
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return +1
	default:
		return 0
	}
}
