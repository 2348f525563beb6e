package service

import (
	"strings"

	"fundarb/internal/domain/model"
)

// VisibleColumns 推导资金费率矩阵的可见列。
// connectedOnly 为 false 时返回全部交易所，否则只保留已连接的
func VisibleColumns(all []model.Exchange, connectedOnly bool) []model.Exchange {
	if !connectedOnly {
		return all
	}
	out := make([]model.Exchange, 0, len(all))
	for _, ex := range all {
		if ex.Connected() {
			out = append(out, ex)
		}
	}
	return out
}

// VisibleRows 推导可见行。顺序是刚性的：先搜索、后连通性，
// 这样"搜索命中但全部落在不可见交易所"会得到空结果而不是短路。
// 可见列为空或覆盖交易所全集时跳过连通性过滤（即不按连通性排除任何行）
func VisibleRows(rows []model.FundingRow, visibleCols []model.Exchange, allExchangeCount int, searchTerm string) []model.FundingRow {
	out := rows

	if term := strings.ToLower(strings.TrimSpace(searchTerm)); term != "" {
		filtered := make([]model.FundingRow, 0, len(out))
		for _, row := range out {
			if rowMatches(row, term) {
				filtered = append(filtered, row)
			}
		}
		out = filtered
	}

	// 连通性过滤只在可见列是真子集时生效
	if len(visibleCols) == 0 || len(visibleCols) >= allExchangeCount {
		return out
	}

	filtered := make([]model.FundingRow, 0, len(out))
	for _, row := range out {
		if hasVisibleQuote(row, visibleCols) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func rowMatches(row model.FundingRow, lowerTerm string) bool {
	for _, field := range []string{row.Symbol, row.Ticker, row.DisplayName} {
		if field != "" && strings.Contains(strings.ToLower(field), lowerTerm) {
			return true
		}
	}
	return false
}

func hasVisibleQuote(row model.FundingRow, cols []model.Exchange) bool {
	for _, ex := range cols {
		if q, ok := row.Rates[ex.Slug]; ok && q != nil {
			return true
		}
	}
	return false
}

// OpportunityFilter 机会列表过滤条件（各条件可选，可组合）。
// MinScore 为 nil 表示不设下限——负分机会也保留，0 分下限必须显式给出
type OpportunityFilter struct {
	SearchTerm string
	MinScore   *float64
}

// FilterOpportunities 过滤机会列表：币种子串匹配（大小写不敏感）且评分达标
func FilterOpportunities(list []*model.Opportunity, f OpportunityFilter) []*model.Opportunity {
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	out := make([]*model.Opportunity, 0, len(list))
	for _, opp := range list {
		if term != "" && !strings.Contains(strings.ToLower(opp.Symbol), term) {
			continue
		}
		if f.MinScore != nil && opp.Score < *f.MinScore {
			continue
		}
		out = append(out, opp)
	}
	return out
}
