package model

import "time"

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	Call OptionKind = "CALL"
	Put  OptionKind = "PUT"
)

// Position is an open option position under monitoring. CurrentPrice and
// MaxProfitPct are mutated once per tick by the coordinator; everything
// else is set when the position is created.
type Position struct {
	ID         int64
	Underlying string
	Kind       OptionKind
	Strike     float64
	Expiration time.Time // date only, exchange-local
	EntryDate  time.Time // date only, exchange-local
	EntryPrice float64
	Quantity   int

	CurrentPrice    *float64
	LastPriceUpdate time.Time
	// MaxProfitPct is the high-water mark of profit percentage since
	// entry. It only ever increases.
	MaxProfitPct float64
}

// Qty returns the position quantity, defaulting to 1 when unset.
func (p *Position) Qty() int {
	if p.Quantity <= 0 {
		return 1
	}
	return p.Quantity
}

// PnLPct returns the profit percentage at the given price. A non-positive
// entry price is a data contract violation and is defused as 0 rather
// than dividing by it.
func (p *Position) PnLPct(current float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (current - p.EntryPrice) / p.EntryPrice * 100
}

// HeldDays returns calendar days since entry.
func (p *Position) HeldDays(now time.Time) int {
	return int(midnight(now).Sub(midnight(p.EntryDate)).Hours() / 24)
}

// DTE returns days to expiration, floored at 0.
func (p *Position) DTE(now time.Time) int {
	d := int(midnight(p.Expiration).Sub(midnight(now)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
