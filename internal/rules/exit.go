package rules

import (
	"fmt"
	"time"

	"OptionSentinel/internal/config"
	"OptionSentinel/internal/model"
)

// Exit rule identifiers. Dedup keys combine these with the position id.
const (
	RuleHardTakeProfit  = "Hard Take Profit"
	RuleFastTakeProfit  = "Fast Take Profit"
	RuleTrailingStop    = "Trailing Stop"
	RuleTechnicalExit   = "Technical Exit"
	RuleForceExit       = "Force Exit"
	RuleRolloverWarning = "Rollover Warning"
	RuleTrendBreakdown  = "Trend Breakdown"
)

// EvaluateExit runs the exit and risk rules for one position. The
// position's CurrentPrice must already be set and MaxProfitPct already
// raised to this tick's high-water mark. The index snapshot feeds the
// technical and trend rules; when its fields are absent those rules
// simply cannot fire. now supplies the exchange-local date.
func EvaluateExit(p *model.Position, s *model.MarketSnapshot, cfg *config.Rules, now time.Time) []model.AlertEvent {
	if p == nil || p.CurrentPrice == nil {
		return nil
	}

	price := *p.CurrentPrice
	pnlPct := p.PnLPct(price)
	heldDays := p.HeldDays(now)
	dte := p.DTE(now)

	var alerts []model.AlertEvent
	add := func(rule string, sev model.Severity, msg, cond string) {
		evt := model.NewAlertEvent(rule, model.CategoryPositionExit, sev, msg, cond, now)
		id := p.ID
		evt.PositionID = &id
		alerts = append(alerts, evt)
	}

	// Dollar p&l at the 100-share contract multiplier, scaled by lots.
	profitAmt := (price - p.EntryPrice) * 100 * float64(p.Qty())

	// 硬性止盈
	if cfg.ExitHardTPEnabled && pnlPct >= cfg.HardTakeProfitPct {
		add(RuleHardTakeProfit, model.SeverityHigh,
			fmt.Sprintf("💰 [硬性止盈] 已盈利 +%.1f%% (约 $%.0f)", pnlPct, profitAmt),
			fmt.Sprintf("盈利 +%.1f%% >= +%.0f%%", pnlPct, cfg.HardTakeProfitPct))
	}

	// 极速止盈：短持仓快速兑现
	if cfg.ExitFastTPEnabled && heldDays <= cfg.FastTakeProfitDays && pnlPct >= cfg.FastTakeProfitPct {
		add(RuleFastTakeProfit, model.SeverityMedium,
			fmt.Sprintf("⚡ [极速止盈] 持仓 %d 天已盈利 +%.1f%% (约 $%.0f)", heldDays, pnlPct, profitAmt),
			fmt.Sprintf("持仓 %d天 <= %d天 AND 盈利 +%.1f%% >= +%.0f%%", heldDays, cfg.FastTakeProfitDays, pnlPct, cfg.FastTakeProfitPct))
	}

	// 移动止盈：高水位回撤
	if cfg.ExitTrailingEnabled && p.MaxProfitPct >= cfg.TrailingMinProfitPct &&
		p.MaxProfitPct-pnlPct >= cfg.TrailingGivebackPct {
		add(RuleTrailingStop, model.SeverityHigh,
			fmt.Sprintf("📉 [移动止盈] 最高盈利 +%.1f%%, 当前 +%.1f%%, 回撤 %.1f%%", p.MaxProfitPct, pnlPct, p.MaxProfitPct-pnlPct),
			fmt.Sprintf("最高盈利 +%.1f%% >= +%.0f%% AND 回撤 %.1f%% >= %.0f%%", p.MaxProfitPct, cfg.TrailingMinProfitPct, p.MaxProfitPct-pnlPct, cfg.TrailingGivebackPct))
	}

	// 技术止盈：大盘过热（用指数快照，不看持仓本身）
	if cfg.ExitTechEnabled && s != nil {
		rsiHot := s.RSI14 != nil && *s.RSI14 > cfg.TechExitRSI
		aboveBand := s.BBUpper != nil && s.LastPrice > *s.BBUpper
		if rsiHot || aboveBand {
			cond := ""
			if rsiHot {
				cond = fmt.Sprintf("指数 RSI %.1f > %.0f", *s.RSI14, cfg.TechExitRSI)
			}
			if aboveBand {
				if cond != "" {
					cond += " OR "
				}
				cond += fmt.Sprintf("指数 %.2f > BB Upper %.2f", s.LastPrice, *s.BBUpper)
			}
			add(RuleTechnicalExit, model.SeverityMedium, "🌡️ [技术止盈] 大盘过热，考虑兑现", cond)
		}
	}

	// DTE 强制清仓优先于移仓提醒，两者互斥
	if cfg.ExitDTEForceEnabled && dte < cfg.ForceExitDTE {
		add(RuleForceExit, model.SeverityCritical,
			fmt.Sprintf("⏰ [强制清仓] 剩余 %d 天到期", dte),
			fmt.Sprintf("DTE %d < %d", dte, cfg.ForceExitDTE))
	} else if cfg.ExitDTEWarningEnabled && dte < cfg.RolloverWarningDTE {
		add(RuleRolloverWarning, model.SeverityMedium,
			fmt.Sprintf("🔄 [移仓窗口] 剩余 %d 天到期，关注移仓", dte),
			fmt.Sprintf("DTE %d < %d", dte, cfg.RolloverWarningDTE))
	}

	// 趋势崩坏：指数跌破年线缓冲
	if cfg.ExitTrendStopEnabled && s != nil && s.MA200 != nil &&
		s.LastPrice < cfg.TrendStopFactor**s.MA200 {
		add(RuleTrendBreakdown, model.SeverityCritical,
			"🛑 [趋势崩坏] 指数跌破年线保护位",
			fmt.Sprintf("指数 %.2f < %.2f x MA200 %.2f", s.LastPrice, cfg.TrendStopFactor, *s.MA200))
	}

	return alerts
}
