// Package rules evaluates entry and exit rule banks against a market
// snapshot. Evaluation is pure: no I/O, no clock reads, no mutation.
package rules

import (
	"fmt"
	"math"

	"OptionSentinel/internal/config"
	"OptionSentinel/internal/model"
)

// Entry rule identifiers. Dedup keys are built from these.
const (
	RuleEntryLevel1 = "Level 1 Entry"
	RuleEntryLevel2 = "Level 2 Entry"
	RuleEntryLevel3 = "Level 3 Entry"
)

// EvaluateEntry runs the index entry rules. All required indicator
// fields must be present, otherwise nothing fires this tick. Each rule
// is independently toggled and all may fire together.
func EvaluateEntry(s *model.MarketSnapshot, cfg *config.Rules) []model.AlertEvent {
	if s == nil {
		return nil
	}
	if s.MA20 == nil || s.MA200 == nil || s.RSI14 == nil ||
		s.BBUpper == nil || s.BBLower == nil ||
		s.PrevClose == nil || s.Close3BarsAgo == nil {
		return nil
	}

	price := s.LastPrice
	bearPrefix := ""
	if price < *s.MA200 {
		bearPrefix = "⚠️ [熊市趋势] (价格低于年线) "
	}

	var alerts []model.AlertEvent

	// Level 1: 轻度回调，跌幅贴近 MA20
	if cfg.EntryLevel1Enabled && *s.PrevClose != 0 {
		dailyDropPct := (price - *s.PrevClose) / *s.PrevClose * 100
		distMA20Pct := math.Abs(price-*s.MA20) / *s.MA20 * 100

		if dailyDropPct <= cfg.DailyDropPct && distMA20Pct <= cfg.MA20DistancePct {
			alerts = append(alerts, model.NewAlertEvent(
				RuleEntryLevel1,
				model.CategoryIndexEntry,
				model.SeverityLow,
				fmt.Sprintf("%s🟢 [日常回调] 跌幅 %.2f%%, 触碰 MA20", bearPrefix, dailyDropPct),
				fmt.Sprintf("跌幅 %.2f%% <= %.1f%% AND MA20距离 %.2f%% <= %.1f%%", dailyDropPct, cfg.DailyDropPct, distMA20Pct, cfg.MA20DistancePct),
				s.Date,
			))
		}
	}

	// Level 2: 黄金坑，3 日连续下杀叠加超卖
	if cfg.EntryLevel2Enabled && *s.Close3BarsAgo != 0 {
		threeDayDropPct := (price - *s.Close3BarsAgo) / *s.Close3BarsAgo * 100

		if threeDayDropPct <= cfg.ThreeDayDropPct && *s.RSI14 < cfg.OversoldRSI {
			alerts = append(alerts, model.NewAlertEvent(
				RuleEntryLevel2,
				model.CategoryIndexEntry,
				model.SeverityHigh,
				fmt.Sprintf("%s🚨 [黄金坑机会] 3日跌幅 %.2f%%, RSI %.1f", bearPrefix, threeDayDropPct, *s.RSI14),
				fmt.Sprintf("3日跌幅 %.2f%% <= %.1f%% AND RSI %.1f < %.0f", threeDayDropPct, cfg.ThreeDayDropPct, *s.RSI14, cfg.OversoldRSI),
				s.Date,
			))
		}
	}

	// Level 3: 极端超卖，跌破布林下轨
	if cfg.EntryLevel3Enabled && price < *s.BBLower {
		alerts = append(alerts, model.NewAlertEvent(
			RuleEntryLevel3,
			model.CategoryIndexEntry,
			model.SeverityCritical,
			fmt.Sprintf("%s📉 [极端超卖] 价格跌破布林下轨", bearPrefix),
			fmt.Sprintf("价格 %.2f < BB Lower %.2f", price, *s.BBLower),
			s.Date,
		))
	}

	return alerts
}
