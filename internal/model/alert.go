package model

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Category separates index entry signals from position exit signals.
type Category string

const (
	CategoryIndexEntry   Category = "index-entry"
	CategoryPositionExit Category = "position-exit"
)

// PanicAssessment is the corroboration score attached to elevated entry
// signals. Available is false when too few of its inputs were present to
// judge anything.
type PanicAssessment struct {
	Available         bool
	VolumeSpike       bool
	DropConcentration bool
	VolatilitySpike   bool
	ConditionsMet     int
	IsPanic           bool
}

// VolatilityTier is the discrete sizing recommendation derived from the
// volatility-proxy ratio.
type VolatilityTier string

const (
	TierLow    VolatilityTier = "LOW"
	TierMedium VolatilityTier = "MEDIUM"
	TierHigh   VolatilityTier = "HIGH"
)

// VolatilitySizing recommends an option moneyness range for the current
// volatility regime.
type VolatilitySizing struct {
	Available  bool
	Tier       VolatilityTier
	Ratio      float64
	DeltaLower float64
	DeltaUpper float64
}

// AlertEvent is a single fired rule, ready for dedup and dispatch.
type AlertEvent struct {
	ID               string
	RuleName         string
	Category         Category
	Severity         Severity
	Message          string
	TriggerCondition string
	At               time.Time // exchange-local
	PositionID       *int64

	Panic  *PanicAssessment
	Sizing *VolatilitySizing
}

// NewAlertEvent builds an event with a fresh identity.
func NewAlertEvent(ruleName string, cat Category, sev Severity, msg, cond string, at time.Time) AlertEvent {
	return AlertEvent{
		ID:               uuid.NewString(),
		RuleName:         ruleName,
		Category:         cat,
		Severity:         sev,
		Message:          msg,
		TriggerCondition: cond,
		At:               at,
	}
}
