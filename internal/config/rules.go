package config

// Rules is the closed set of rule toggles and thresholds evaluated each
// tick. The coordinator snapshots it at tick start and treats it as
// immutable for the tick.
type Rules struct {
	// Index entry rules
	EntryLevel1Enabled bool `yaml:"entry_level1_enabled"`
	EntryLevel2Enabled bool `yaml:"entry_level2_enabled"`
	EntryLevel3Enabled bool `yaml:"entry_level3_enabled"`

	DailyDropPct    float64 `yaml:"daily_drop_pct"`
	MA20DistancePct float64 `yaml:"ma20_distance_pct"`
	ThreeDayDropPct float64 `yaml:"three_day_drop_pct"`
	OversoldRSI     float64 `yaml:"oversold_rsi"`

	// Position exit rules
	ExitHardTPEnabled     bool `yaml:"exit_hard_tp_enabled"`
	ExitFastTPEnabled     bool `yaml:"exit_fast_tp_enabled"`
	ExitTrailingEnabled   bool `yaml:"exit_trailing_enabled"`
	ExitTechEnabled       bool `yaml:"exit_tech_enabled"`
	ExitDTEForceEnabled   bool `yaml:"exit_dte_force_enabled"`
	ExitDTEWarningEnabled bool `yaml:"exit_dte_warning_enabled"`
	ExitTrendStopEnabled  bool `yaml:"exit_trend_stop_enabled"`

	HardTakeProfitPct    float64 `yaml:"hard_take_profit_pct"`
	FastTakeProfitDays   int     `yaml:"fast_take_profit_days"`
	FastTakeProfitPct    float64 `yaml:"fast_take_profit_pct"`
	TrailingMinProfitPct float64 `yaml:"trailing_min_profit_pct"`
	TrailingGivebackPct  float64 `yaml:"trailing_giveback_pct"`
	TechExitRSI          float64 `yaml:"tech_exit_rsi"`
	ForceExitDTE         int     `yaml:"force_exit_dte"`
	RolloverWarningDTE   int     `yaml:"rollover_warning_dte"`
	TrendStopFactor      float64 `yaml:"trend_stop_factor"`
}

// DefaultRules returns the production thresholds. Loading YAML on top of
// this overrides only the keys present in the file.
func DefaultRules() Rules {
	return Rules{
		EntryLevel1Enabled: true,
		EntryLevel2Enabled: true,
		EntryLevel3Enabled: true,

		DailyDropPct:    -1.2,
		MA20DistancePct: 0.5,
		ThreeDayDropPct: -3.5,
		OversoldRSI:     32,

		ExitHardTPEnabled:     true,
		ExitFastTPEnabled:     true,
		ExitTrailingEnabled:   true,
		ExitTechEnabled:       true,
		ExitDTEForceEnabled:   true,
		ExitDTEWarningEnabled: true,
		ExitTrendStopEnabled:  true,

		HardTakeProfitPct:    50,
		FastTakeProfitDays:   7,
		FastTakeProfitPct:    15,
		TrailingMinProfitPct: 30,
		TrailingGivebackPct:  10,
		TechExitRSI:          75,
		ForceExitDTE:         90,
		RolloverWarningDTE:   120,
		TrendStopFactor:      0.99,
	}
}
