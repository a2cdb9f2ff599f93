package marketdata

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"OptionSentinel/internal/model"
)

// historyDays is how much index history one snapshot needs; anything past
// the 200-day average is headroom for holidays.
const historyDays = 250

// IndexInputs is everything the indicator engine needs for one tick.
type IndexInputs struct {
	Bars  []model.OHLCV // ascending by date
	Quote Quote
}

// TieredSource satisfies requests from cache first, then the primary
// provider, then the secondary. Both failing yields ErrNoData; provider
// errors never escape this boundary, and values from the two providers
// are never blended into a single field.
type TieredSource struct {
	primary   Provider
	secondary Provider
	cache     *Cache
	retry     RetryPolicy

	symbol    string
	volSymbol string
	log       zerolog.Logger
}

// NewTieredSource wires the two providers behind the shared cache.
func NewTieredSource(primary, secondary Provider, cache *Cache, retry RetryPolicy, symbol, volSymbol string, log zerolog.Logger) *TieredSource {
	return &TieredSource{
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		retry:     retry,
		symbol:    symbol,
		volSymbol: volSymbol,
		log:       log.With().Str("component", "marketdata").Logger(),
	}
}

// fetch runs one logical request against an ordered provider tier:
// cache hit first, then each provider in turn under the retry policy.
func (s *TieredSource) fetch(sig string, ttl time.Duration, order []Provider, call func(Provider) (any, error)) (any, error) {
	for _, p := range order {
		if v, ok := s.cache.Get(p.Name()+":"+sig, ttl); ok {
			return v, nil
		}
	}
	var lastErr error
	for _, p := range order {
		var v any
		err := s.retry.Do(func() error {
			var e error
			v, e = call(p)
			return e
		})
		if err != nil {
			s.log.Warn().Str("provider", p.Name()).Str("request", sig).Err(err).Msg("provider failed, trying next tier")
			lastErr = err
			continue
		}
		s.cache.Put(p.Name()+":"+sig, v)
		return v, nil
	}
	return nil, fmt.Errorf("%s: %w (last provider error: %v)", sig, ErrNoData, lastErr)
}

func (s *TieredSource) historyOrder() []Provider { return []Provider{s.primary, s.secondary} }

// quoteOrder puts the secondary first: the primary serves daily
// aggregates only, so it can never win for intraday readings.
func (s *TieredSource) quoteOrder() []Provider { return []Provider{s.secondary, s.primary} }

// IndexSnapshotInputs fetches the index daily history plus a live quote.
func (s *TieredSource) IndexSnapshotInputs() (*IndexInputs, error) {
	barsAny, err := s.fetch(fmt.Sprintf("index_bars:%s:%d", s.symbol, historyDays), TTLHistory, s.historyOrder(), func(p Provider) (any, error) {
		return p.DailyBars(s.symbol, historyDays)
	})
	if err != nil {
		return nil, err
	}
	quoteAny, err := s.fetch("index_quote:"+s.symbol, TTLQuote, s.quoteOrder(), func(p Provider) (any, error) {
		return p.IndexQuote(s.symbol)
	})
	if err != nil {
		return nil, err
	}
	return &IndexInputs{Bars: barsAny.([]model.OHLCV), Quote: quoteAny.(Quote)}, nil
}

// OptionQuote returns the latest price for the position's contract.
func (s *TieredSource) OptionQuote(p *model.Position) (float64, error) {
	ticker := FormatOptionTicker(p)
	v, err := s.fetch("option_quote:"+ticker, TTLQuote, s.historyOrder(), func(pr Provider) (any, error) {
		return pr.OptionQuote(ticker)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// OptionHistory returns up to days daily bars for the position's contract.
func (s *TieredSource) OptionHistory(p *model.Position, days int) ([]model.OHLCV, error) {
	ticker := FormatOptionTicker(p)
	v, err := s.fetch(fmt.Sprintf("option_bars:%s:%d", ticker, days), TTLHistory, s.historyOrder(), func(pr Provider) (any, error) {
		return pr.OptionBars(ticker, days)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.OHLCV), nil
}

// VolatilityInputs reads the implied-volatility proxy index: latest
// close, previous close, and its 20-day average. Avg20 is 0 when fewer
// than 20 bars exist; downstream treats that as unavailable.
func (s *TieredSource) VolatilityInputs() (*model.VolatilityInputs, error) {
	v, err := s.fetch(fmt.Sprintf("vol_bars:%s", s.volSymbol), TTLHistory, s.historyOrder(), func(p Provider) (any, error) {
		return p.DailyBars(s.volSymbol, 25)
	})
	if err != nil {
		return nil, err
	}
	bars := v.([]model.OHLCV)
	if len(bars) < 2 {
		return nil, fmt.Errorf("vol_bars:%s: %w (only %d bars)", s.volSymbol, ErrNoData, len(bars))
	}

	in := &model.VolatilityInputs{
		Last:      bars[len(bars)-1].Close,
		PrevClose: bars[len(bars)-2].Close,
	}
	if len(bars) >= 20 {
		closes := make([]float64, 20)
		for i, b := range bars[len(bars)-20:] {
			closes[i] = b.Close
		}
		in.Avg20 = stat.Mean(closes, nil)
	}
	return in, nil
}

// ClearCache drops every cached entry. Failure-recovery and test reset
// paths call this.
func (s *TieredSource) ClearCache() {
	s.cache.Clear()
}
