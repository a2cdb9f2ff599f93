// Package advisor runs the secondary analysis attached to elevated
// entry signals: a panic corroboration score plus a volatility-tier
// sizing recommendation. Missing inputs degrade to "unavailable",
// never to an error.
package advisor

import "OptionSentinel/internal/model"

const (
	volumeSpikeFactor  = 1.5
	concentrationDrop  = -1.5
	volSpikeRelPct     = 15
	volSpikeAbsPoints  = 3
	panicConditionsMin = 2
)

// AssessPanic scores the three corroborating conditions against the
// snapshot and the volatility proxy. A condition whose inputs are
// missing counts as not evaluable; the result is unavailable unless at
// least two conditions could be judged.
func AssessPanic(s *model.MarketSnapshot, vol *model.VolatilityInputs) *model.PanicAssessment {
	a := &model.PanicAssessment{}
	evaluable := 0

	// Volume condition: current volume above 1.5x its 20-day average.
	if s != nil && s.Volume != nil && s.AvgVolume20 != nil && *s.AvgVolume20 > 0 {
		evaluable++
		if *s.Volume > volumeSpikeFactor**s.AvgVolume20 {
			a.VolumeSpike = true
			a.ConditionsMet++
		}
	}

	// Concentration condition: at least 2 of the last 3 daily changes
	// at or below -1.5%.
	if s != nil && len(s.RecentChanges) >= 3 {
		evaluable++
		drops := 0
		for _, chg := range s.RecentChanges[len(s.RecentChanges)-3:] {
			if chg <= concentrationDrop {
				drops++
			}
		}
		if drops >= 2 {
			a.DropConcentration = true
			a.ConditionsMet++
		}
	}

	// Volatility-spike condition: proxy up 15% relative or 3 points
	// absolute on the day.
	if vol != nil && vol.PrevClose > 0 {
		evaluable++
		change := vol.Last - vol.PrevClose
		if change/vol.PrevClose*100 >= volSpikeRelPct || change >= volSpikeAbsPoints {
			a.VolatilitySpike = true
			a.ConditionsMet++
		}
	}

	if evaluable < panicConditionsMin {
		return &model.PanicAssessment{}
	}
	a.Available = true
	a.IsPanic = a.ConditionsMet >= panicConditionsMin
	return a
}

// RecommendSizing maps the volatility-proxy ratio over its 20-day
// average to a discrete tier, each carrying a recommended option
// moneyness (delta) range.
func RecommendSizing(vol *model.VolatilityInputs) *model.VolatilitySizing {
	if vol == nil || vol.Avg20 <= 0 {
		return &model.VolatilitySizing{}
	}
	ratio := vol.Last / vol.Avg20
	out := &model.VolatilitySizing{Available: true, Ratio: ratio}
	switch {
	case ratio <= 1.3:
		out.Tier = model.TierLow
		out.DeltaLower, out.DeltaUpper = 0.60, 0.70
	case ratio <= 1.5:
		out.Tier = model.TierMedium
		out.DeltaLower, out.DeltaUpper = 0.45, 0.60
	default:
		out.Tier = model.TierHigh
		out.DeltaLower, out.DeltaUpper = 0.30, 0.45
	}
	return out
}
