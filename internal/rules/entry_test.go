package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OptionSentinel/internal/config"
	"OptionSentinel/internal/model"
)

func fp(v float64) *float64 { return &v }

func defaultRules() *config.Rules {
	r := config.DefaultRules()
	return &r
}

// fullSnapshot returns a snapshot with every required entry field set
// to unremarkable values; tests override what they need.
func fullSnapshot() *model.MarketSnapshot {
	return &model.MarketSnapshot{
		Date:          time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC),
		LastPrice:     500,
		PrevClose:     fp(500),
		Close3BarsAgo: fp(500),
		MA20:          fp(490),
		MA200:         fp(450),
		RSI14:         fp(50),
		BBUpper:       fp(520),
		BBLower:       fp(470),
	}
}

func TestEvaluateEntry_MissingFieldProducesNothing(t *testing.T) {
	cfg := defaultRules()

	s := fullSnapshot()
	s.LastPrice = 100 // would trip Level 3 against any band
	s.BBLower = fp(470)
	s.MA200 = nil
	assert.Empty(t, EvaluateEntry(s, cfg), "absent required field means no rule can fire")

	s = fullSnapshot()
	s.RSI14 = nil
	assert.Empty(t, EvaluateEntry(s, cfg))

	assert.Empty(t, EvaluateEntry(nil, cfg))
}

func TestEvaluateEntry_Level1Scenario(t *testing.T) {
	// Daily drop -2.44%, distance to MA20 0.25%, price above the
	// lower band.
	s := fullSnapshot()
	s.LastPrice = 400
	s.PrevClose = fp(410)
	s.MA20 = fp(401)
	s.BBLower = fp(395)
	s.RSI14 = fp(30)
	s.Close3BarsAgo = fp(405)
	s.MA200 = fp(390)

	alerts := EvaluateEntry(s, defaultRules())
	names := ruleNames(alerts)
	assert.Contains(t, names, RuleEntryLevel1)
	assert.NotContains(t, names, RuleEntryLevel3, "400 >= 395 keeps Level 3 silent")

	for _, a := range alerts {
		if a.RuleName == RuleEntryLevel1 {
			assert.Equal(t, model.SeverityLow, a.Severity)
			assert.Equal(t, model.CategoryIndexEntry, a.Category)
		}
	}
}

func TestEvaluateEntry_Level2Capitulation(t *testing.T) {
	s := fullSnapshot()
	s.LastPrice = 480
	s.Close3BarsAgo = fp(500) // -4.0%
	s.RSI14 = fp(28)

	alerts := EvaluateEntry(s, defaultRules())
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleEntryLevel2, alerts[0].RuleName)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
}

func TestEvaluateEntry_Level3BelowLowerBand(t *testing.T) {
	s := fullSnapshot()
	s.LastPrice = 465
	s.BBLower = fp(470)

	alerts := EvaluateEntry(s, defaultRules())
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleEntryLevel3, alerts[0].RuleName)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
}

func TestEvaluateEntry_BearMarketPrefix(t *testing.T) {
	s := fullSnapshot()
	s.LastPrice = 465
	s.BBLower = fp(470)
	s.MA200 = fp(500) // price below the 200-day line

	alerts := EvaluateEntry(s, defaultRules())
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "熊市趋势")

	s.MA200 = fp(400)
	alerts = EvaluateEntry(s, defaultRules())
	require.Len(t, alerts, 1)
	assert.NotContains(t, alerts[0].Message, "熊市趋势")
}

func TestEvaluateEntry_AllThreeCanFireTogether(t *testing.T) {
	s := fullSnapshot()
	s.LastPrice = 400
	s.PrevClose = fp(410)   // -2.44%
	s.MA20 = fp(401)        // 0.25% away
	s.Close3BarsAgo = fp(420) // -4.76%
	s.RSI14 = fp(25)
	s.BBLower = fp(405) // price below band

	alerts := EvaluateEntry(s, defaultRules())
	assert.ElementsMatch(t,
		[]string{RuleEntryLevel1, RuleEntryLevel2, RuleEntryLevel3},
		ruleNames(alerts))
}

func TestEvaluateEntry_TogglesDisableIndividually(t *testing.T) {
	s := fullSnapshot()
	s.LastPrice = 400
	s.PrevClose = fp(410)
	s.MA20 = fp(401)
	s.Close3BarsAgo = fp(420)
	s.RSI14 = fp(25)
	s.BBLower = fp(405)

	cfg := defaultRules()
	cfg.EntryLevel2Enabled = false

	names := ruleNames(EvaluateEntry(s, cfg))
	assert.Contains(t, names, RuleEntryLevel1)
	assert.NotContains(t, names, RuleEntryLevel2)
	assert.Contains(t, names, RuleEntryLevel3)
}

func ruleNames(alerts []model.AlertEvent) []string {
	names := make([]string, 0, len(alerts))
	for _, a := range alerts {
		names = append(names, a.RuleName)
	}
	return names
}
