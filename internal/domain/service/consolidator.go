package service

import (
	"fundarb/internal/domain/model"
)

// Consolidate 把持仓的无序腿列表合并为多/空腿对视图。
// 对任意腿数（0、1、2、N）都是全函数：缺腿标记 Found=false，
// 数值统一兜底为 0，不抛错不传播 NaN——上游数据质量没有保证
func Consolidate(p *model.Position) model.ConsolidatedPosition {
	cp := model.ConsolidatedPosition{
		ID:                      p.ID,
		Symbol:                  p.Symbol,
		Status:                  p.Status,
		HealthStatus:            p.HealthStatus,
		TotalCapitalDeployed:    safeNum(p.TotalCapitalDeployed),
		ReturnPct:               safeNum(p.ReturnPct),
		FundingPeriodsCollected: p.FundingPeriodsCollected,
		OpenedAt:                p.OpenedAt,
	}

	// 各方向取第一条匹配的腿
	for i := range p.Legs {
		leg := &p.Legs[i]
		switch leg.Side {
		case model.SideLong:
			if !cp.LongLeg.Found {
				cp.LongLeg = legView(leg)
			}
		case model.SideShort:
			if !cp.ShortLeg.Found {
				cp.ShortLeg = legView(leg)
			}
		}
	}

	// 优先后端聚合值，为零或缺失时回退为全部腿求和
	// （求和覆盖整个腿列表，不止上面识别出的两条，兼容 >2 腿结构）
	cp.NetPnl = preferAggregate(p.UnrealizedPnl, p.Legs, func(l *model.PositionLeg) float64 { return l.UnrealizedPnl })
	cp.NetFundingPnl = preferAggregate(p.NetFundingPnl, p.Legs, func(l *model.PositionLeg) float64 { return l.FundingPnl })

	return cp
}

func legView(l *model.PositionLeg) model.LegView {
	return model.LegView{
		Exchange:      l.Exchange,
		Side:          l.Side,
		Quantity:      safeNum(l.Quantity),
		EntryPrice:    safeNum(l.EntryPrice),
		CurrentPrice:  safeNum(l.CurrentPrice),
		NotionalUsd:   safeNum(l.NotionalValueUsd),
		UnrealizedPnl: safeNum(l.UnrealizedPnl),
		FundingPnl:    safeNum(l.FundingPnl),
		Found:         true,
	}
}

func preferAggregate(aggregate float64, legs []model.PositionLeg, pick func(*model.PositionLeg) float64) float64 {
	if v := safeNum(aggregate); v != 0 {
		return v
	}
	sum := 0.0
	for i := range legs {
		sum += safeNum(pick(&legs[i]))
	}
	return sum
}

// Aggregate 计算合并持仓集合的汇总统计。空集合均值为 0，不做除零
func Aggregate(list []model.ConsolidatedPosition) model.PositionStats {
	stats := model.PositionStats{PositionCount: len(list)}
	if len(list) == 0 {
		return stats
	}

	returnSum := 0.0
	for i := range list {
		cp := &list[i]
		stats.TotalCapital += cp.TotalCapitalDeployed
		stats.TotalNetPnl += cp.NetPnl
		stats.TotalFundingPnl += cp.NetFundingPnl
		returnSum += cp.ReturnPct
	}
	stats.AvgReturnPct = returnSum / float64(len(list))
	return stats
}
