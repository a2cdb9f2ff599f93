package marketdata

import (
	"errors"
	"time"

	"OptionSentinel/internal/model"
)

// ErrNoData is the only error the tiered source lets escape: both
// providers failed or returned nothing usable. Callers check it with
// errors.Is and treat it as "no alert this tick", never as fatal.
var ErrNoData = errors.New("no market data available")

// Quote is an intraday reading for one symbol.
type Quote struct {
	Price float64
	High  float64
	At    time.Time
}

// Provider fetches raw price data from one upstream. Implementations
// return transport or payload errors freely; the tiered source decides
// what escapes.
type Provider interface {
	Name() string
	IndexQuote(symbol string) (Quote, error)
	DailyBars(symbol string, days int) ([]model.OHLCV, error)
	OptionQuote(ticker string) (float64, error)
	OptionBars(ticker string, days int) ([]model.OHLCV, error)
}
