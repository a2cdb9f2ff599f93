package notifier

import (
	"fmt"
	"strings"

	"OptionSentinel/internal/model"
)

var severityIcons = map[model.Severity]string{
	model.SeverityLow:      "🟢",
	model.SeverityMedium:   "🟡",
	model.SeverityHigh:     "🟠",
	model.SeverityCritical: "🔴",
}

// FormatIndexAlert renders an index entry alert, including the panic
// corroboration and sizing annex when present.
func FormatIndexAlert(evt *model.AlertEvent) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s **指数入场信号** | %s\n\n", severityIcons[evt.Severity], evt.At.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("规则: %s (%s)\n", evt.RuleName, evt.Severity))
	b.WriteString(evt.Message + "\n")
	b.WriteString(fmt.Sprintf("触发条件: %s\n", evt.TriggerCondition))

	if evt.Panic != nil && evt.Panic.Available {
		b.WriteString("\n**恐慌加速确认**\n")
		b.WriteString(fmt.Sprintf("满足条件: %d/3 (放量 %s, 集中下跌 %s, 波动率跳升 %s)\n",
			evt.Panic.ConditionsMet,
			checkmark(evt.Panic.VolumeSpike),
			checkmark(evt.Panic.DropConcentration),
			checkmark(evt.Panic.VolatilitySpike)))
		if evt.Panic.IsPanic {
			b.WriteString("判定: ⚡ 恐慌加速，信号可信度升级\n")
		} else {
			b.WriteString("判定: 无恐慌确认\n")
		}
	}

	if evt.Sizing != nil && evt.Sizing.Available {
		b.WriteString(fmt.Sprintf("\n**波动率档位**: %s (VIX/20日均值 = %.2f)\n", evt.Sizing.Tier, evt.Sizing.Ratio))
		b.WriteString(fmt.Sprintf("建议 Delta 区间: %.2f - %.2f\n", evt.Sizing.DeltaLower, evt.Sizing.DeltaUpper))
	}

	return b.String()
}

// FormatPositionAlert renders a position exit alert with its formatted
// option ticker.
func FormatPositionAlert(evt *model.AlertEvent, ticker string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s **持仓风控信号** | %s\n\n", severityIcons[evt.Severity], evt.At.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("合约: `%s`\n", ticker))
	b.WriteString(fmt.Sprintf("规则: %s (%s)\n", evt.RuleName, evt.Severity))
	b.WriteString(evt.Message + "\n")
	b.WriteString(fmt.Sprintf("触发条件: %s\n", evt.TriggerCondition))

	return b.String()
}

func checkmark(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
