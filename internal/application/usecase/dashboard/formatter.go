package dashboard

import (
	"fmt"
	"strings"
	"time"

	"fundarb/internal/application/usecase/countdown"
	"fundarb/internal/domain/model"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
)

func colorize(s, c string) string { return c + s + ansiReset }

// Formatter 把机会/持仓视图渲染为终端帧
type Formatter struct {
	UrgentWindow time.Duration
}

func NewFormatter(urgentWindow time.Duration) *Formatter {
	if urgentWindow <= 0 {
		urgentWindow = countdown.DefaultUrgentWindow
	}
	return &Formatter{UrgentWindow: urgentWindow}
}

// RenderFrame 渲染完整看板帧
func (f *Formatter) RenderFrame(now time.Time, running bool, opps []*model.Opportunity, positions []model.ConsolidatedPosition, stats model.PositionStats) string {
	var sb strings.Builder

	engineState := colorize("STOPPED", ansiRed)
	if running {
		engineState = colorize("RUNNING", ansiGreen)
	}
	sb.WriteString(colorize("[FUNDARB] ", ansiDim))
	sb.WriteString("engine: ")
	sb.WriteString(engineState)
	sb.WriteString(colorize("  "+now.Format("2006-01-02 15:04:05"), ansiDim))
	sb.WriteString("\n\n")

	f.renderOpportunities(&sb, now, opps)
	sb.WriteString("\n")
	f.renderPositions(&sb, positions, stats)

	return sb.String()
}

func (f *Formatter) renderOpportunities(sb *strings.Builder, now time.Time, opps []*model.Opportunity) {
	sb.WriteString(colorize(fmt.Sprintf("OPPORTUNITIES (%d)\n", len(opps)), ansiBold))
	sb.WriteString(colorize(fmt.Sprintf("  %-12s %-18s %-18s %9s %9s %7s %10s\n",
		"SYMBOL", "LONG", "SHORT", "SPREAD%", "APR%", "SCORE", "EXPIRES"), ansiDim))

	for _, opp := range opps {
		expires, col := f.expiryCell(now, opp)
		long := fmt.Sprintf("%s %+.4f", opp.LongLeg.Exchange, opp.LongLeg.FundingRate)
		short := fmt.Sprintf("%s %+.4f", opp.ShortLeg.Exchange, opp.ShortLeg.FundingRate)
		sb.WriteString(fmt.Sprintf("  %-12s %-18s %-18s %9.4f %9.2f %7.1f %s\n",
			opp.Symbol, long, short,
			opp.FundingSpreadPct, opp.EstimatedNetApr, opp.Score,
			colorize(fmt.Sprintf("%10s", expires), col)))
	}
}

// expiryCell 过期列：无目标 N/A、已过期红色 Expired、紧急窗口内黄色
func (f *Formatter) expiryCell(now time.Time, opp *model.Opportunity) (string, string) {
	if !opp.HasExpiry {
		return "N/A", ansiDim
	}
	remaining := opp.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return "Expired", ansiRed
	}
	display := countdown.FormatRemaining(remaining)
	if remaining < f.UrgentWindow {
		return display, ansiYellow
	}
	return display, ansiGreen
}

func (f *Formatter) renderPositions(sb *strings.Builder, positions []model.ConsolidatedPosition, stats model.PositionStats) {
	sb.WriteString(colorize(fmt.Sprintf("POSITIONS (%d)  ", stats.PositionCount), ansiBold))
	sb.WriteString(fmt.Sprintf("capital=%.2f  pnl=%s  funding=%s  avg_return=%.2f%%\n",
		stats.TotalCapital,
		pnlCell(stats.TotalNetPnl),
		pnlCell(stats.TotalFundingPnl),
		stats.AvgReturnPct))
	sb.WriteString(colorize(fmt.Sprintf("  %-12s %-10s %-22s %-22s %10s %10s\n",
		"SYMBOL", "HEALTH", "LONG", "SHORT", "PNL", "FUNDING"), ansiDim))

	for i := range positions {
		pos := &positions[i]
		sb.WriteString(fmt.Sprintf("  %-12s %-10s %-22s %-22s %s %s\n",
			pos.Symbol,
			healthCell(pos.HealthStatus),
			legCell(pos.LongLeg),
			legCell(pos.ShortLeg),
			colorizeNum(pos.NetPnl, 10),
			colorizeNum(pos.NetFundingPnl, 10)))
	}
}

func legCell(leg model.LegView) string {
	if !leg.Found {
		return "--"
	}
	return fmt.Sprintf("%s %.4f@%.2f", leg.Exchange, leg.Quantity, leg.EntryPrice)
}

func healthCell(health string) string {
	switch health {
	case "healthy":
		return colorize(health, ansiGreen)
	case "warning":
		return colorize(health, ansiYellow)
	case "critical":
		return colorize(health, ansiRed)
	default:
		return colorize("unknown", ansiDim)
	}
}

func pnlCell(v float64) string {
	s := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return colorize(s, ansiRed)
	}
	return colorize(s, ansiGreen)
}

func colorizeNum(v float64, width int) string {
	s := fmt.Sprintf("%+*.2f", width, v)
	if v < 0 {
		return colorize(s, ansiRed)
	}
	return colorize(s, ansiGreen)
}
