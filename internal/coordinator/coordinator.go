// Package coordinator runs the tick cycle: fetch market data, compute
// the snapshot, evaluate rules, corroborate severe signals, dedup, and
// dispatch. One bad position never aborts the tick.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"OptionSentinel/internal/advisor"
	"OptionSentinel/internal/config"
	"OptionSentinel/internal/dedup"
	"OptionSentinel/internal/indicator"
	"OptionSentinel/internal/marketdata"
	"OptionSentinel/internal/model"
	"OptionSentinel/internal/notifier"
	"OptionSentinel/internal/rules"
)

const sendRetries = 3

// DataSource is the tiered market-data boundary.
type DataSource interface {
	IndexSnapshotInputs() (*marketdata.IndexInputs, error)
	OptionQuote(p *model.Position) (float64, error)
	VolatilityInputs() (*model.VolatilityInputs, error)
	ClearCache()
}

// Store is the persistence collaborator surface the tick needs.
type Store interface {
	Positions() ([]*model.Position, error)
	UpdatePositionPrice(id int64, price, maxProfitPct float64, at time.Time) error
	LogAlert(evt *model.AlertEvent, delivered bool, errMsg string) error
	UpsertDailyIndexData(date time.Time, closePrice, highPrice float64) error
	PurgeOld(alertRetentionDays, indexRetentionDays int, now time.Time) (int64, int64, error)
}

// Sender is the notification collaborator surface.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Coordinator owns the shared mutable state (dedup ledger, cache) and
// orchestrates one tick per invocation. tickLock serializes ticks: a
// scheduler fire that overlaps a slow tick is skipped rather than
// interleaved, which would break maxProfitPct monotonicity and dedup
// at-most-once.
type Coordinator struct {
	source   DataSource
	store    Store
	notifier Sender
	dedup    *dedup.Deduplicator

	rulesFn       func() *config.Rules
	isTradingTime func(time.Time) bool
	retention     Retention

	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
	tickLock chan struct{}
}

// Retention bounds how long persisted records live.
type Retention struct {
	AlertLogDays  int
	IndexDataDays int
}

// New wires a Coordinator. rulesFn is called at every tick start so
// config edits land on the next tick; isTradingTime gates the 5-minute
// tick entirely.
func New(source DataSource, st Store, sender Sender, dd *dedup.Deduplicator,
	rulesFn func() *config.Rules, isTradingTime func(time.Time) bool,
	retention Retention, loc *time.Location, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		source:        source,
		store:         st,
		notifier:      sender,
		dedup:         dd,
		rulesFn:       rulesFn,
		isTradingTime: isTradingTime,
		retention:     retention,
		loc:           loc,
		now:           time.Now,
		log:           log.With().Str("component", "coordinator").Logger(),
		tickLock:      make(chan struct{}, 1),
	}
	return c
}

// SetClock injects a clock for tests.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// RunTick executes one full check cycle. It no-ops outside trading
// hours and skips entirely when a previous tick is still running.
func (c *Coordinator) RunTick(ctx context.Context) {
	select {
	case c.tickLock <- struct{}{}:
	default:
		c.log.Warn().Msg("previous tick still running, skipping this fire")
		return
	}
	defer func() { <-c.tickLock }()

	now := c.now().In(c.loc)
	if !c.isTradingTime(now) {
		c.log.Debug().Msg("outside trading hours, skipping tick")
		return
	}

	cfg := c.rulesFn()
	snap := c.buildSnapshot(now)

	if snap != nil {
		c.checkIndex(ctx, snap, cfg)
	}
	c.checkPositions(ctx, snap, cfg, now)
}

// buildSnapshot fetches index inputs and computes the snapshot. A data
// outage yields nil; downstream rules then skip rather than fire on
// garbage.
func (c *Coordinator) buildSnapshot(now time.Time) *model.MarketSnapshot {
	inputs, err := c.source.IndexSnapshotInputs()
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			c.log.Warn().Err(err).Msg("no index data this tick")
		} else {
			c.log.Error().Err(err).Msg("index fetch failed")
		}
		return nil
	}

	high := inputs.Quote.High
	snap := indicator.Snapshot(inputs.Bars, inputs.Quote.Price, &high, now)

	if err := c.store.UpsertDailyIndexData(now, snap.LastPrice, high); err != nil {
		c.log.Error().Err(err).Msg("persist daily index data")
	}
	return snap
}

// checkIndex evaluates entry rules and dispatches deduplicated alerts,
// attaching the panic/volatility annex to elevated signals.
func (c *Coordinator) checkIndex(ctx context.Context, snap *model.MarketSnapshot, cfg *config.Rules) {
	alerts := rules.EvaluateEntry(snap, cfg)
	if len(alerts) == 0 {
		return
	}

	var vol *model.VolatilityInputs
	volFetched := false

	for i := range alerts {
		evt := &alerts[i]

		if evt.Severity == model.SeverityHigh || evt.Severity == model.SeverityCritical {
			if !volFetched {
				volFetched = true
				v, err := c.source.VolatilityInputs()
				if err != nil {
					c.log.Warn().Err(err).Msg("volatility proxy unavailable")
				} else {
					vol = v
				}
			}
			evt.Panic = advisor.AssessPanic(snap, vol)
			evt.Sizing = advisor.RecommendSizing(vol)
		}

		if !c.dedup.ShouldAlert(evt.RuleName, nil) {
			continue
		}
		c.dispatch(ctx, evt, notifier.FormatIndexAlert(evt))
	}
}

// checkPositions prices and evaluates each position, isolating failures:
// a fetch error or panic in one position logs and moves on.
func (c *Coordinator) checkPositions(ctx context.Context, snap *model.MarketSnapshot, cfg *config.Rules, now time.Time) {
	positions, err := c.store.Positions()
	if err != nil {
		c.log.Error().Err(err).Msg("load positions")
		return
	}

	for _, p := range positions {
		c.processPosition(ctx, p, snap, cfg, now)
	}
}

func (c *Coordinator) processPosition(ctx context.Context, p *model.Position, snap *model.MarketSnapshot, cfg *config.Rules, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Int64("position", p.ID).Any("panic", r).Msg("position processing panicked, skipped")
		}
	}()

	price, err := c.source.OptionQuote(p)
	if err != nil {
		c.log.Warn().Int64("position", p.ID).Err(err).Msg("no quote for position, skipping")
		return
	}

	p.CurrentPrice = &price
	p.LastPriceUpdate = now

	// Raise the high-water mark before the trailing-stop check runs.
	if pnl := p.PnLPct(price); pnl > p.MaxProfitPct {
		p.MaxProfitPct = pnl
	}
	if err := c.store.UpdatePositionPrice(p.ID, price, p.MaxProfitPct, now); err != nil {
		c.log.Error().Int64("position", p.ID).Err(err).Msg("persist position price")
	}

	alerts := rules.EvaluateExit(p, snap, cfg, now)
	if len(alerts) == 0 {
		return
	}

	ticker := marketdata.FormatOptionTicker(p)
	for i := range alerts {
		evt := &alerts[i]
		if !c.dedup.ShouldAlert(evt.RuleName, evt.PositionID) {
			continue
		}
		c.dispatch(ctx, evt, notifier.FormatPositionAlert(evt, ticker))
	}
}

// dispatch sends one alert and records the delivery outcome. Delivery
// failure is logged, never retried beyond the notifier's own backoff.
func (c *Coordinator) dispatch(ctx context.Context, evt *model.AlertEvent, text string) {
	sendErr := c.notifier.SendWithRetry(ctx, text, sendRetries)
	if sendErr != nil {
		c.log.Error().Str("rule", evt.RuleName).Err(sendErr).Msg("alert delivery failed")
	}

	errMsg := ""
	if sendErr != nil {
		errMsg = sendErr.Error()
	}
	if err := c.store.LogAlert(evt, sendErr == nil, errMsg); err != nil {
		c.log.Error().Str("rule", evt.RuleName).Err(err).Msg("persist alert log")
	}
}

// RunMaintenance is the daily entry point: retention-based deletion of
// old records, then the dedup day rollover. It waits for any in-flight
// tick to finish.
func (c *Coordinator) RunMaintenance(ctx context.Context) {
	c.tickLock <- struct{}{}
	defer func() { <-c.tickLock }()

	now := c.now().In(c.loc)
	deletedAlerts, deletedIndex, err := c.store.PurgeOld(c.retention.AlertLogDays, c.retention.IndexDataDays, now)
	if err != nil {
		c.log.Error().Err(err).Msg("retention cleanup failed")
	} else {
		c.log.Info().Int64("alerts", deletedAlerts).Int64("index_rows", deletedIndex).Msg("retention cleanup done")
	}

	c.dedup.ResetDaily()
	c.source.ClearCache()
}
