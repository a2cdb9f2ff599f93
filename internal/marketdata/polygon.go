package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"OptionSentinel/internal/model"
	"OptionSentinel/internal/ratelimit"
)

// PolygonProvider implements Provider against the Polygon.io REST API.
// The free tier is aggressively rate limited, so every request goes
// through the shared limiter first.
type PolygonProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *ratelimit.Limiter

	symbolMap map[string]string
	loc       *time.Location
}

// NewPolygonProvider creates a provider with optional proxy support.
func NewPolygonProvider(baseURL, apiKey, proxyURL string, limiter *ratelimit.Limiter, loc *time.Location) *PolygonProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &PolygonProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Limiter: limiter,
		symbolMap: map[string]string{
			"^VIX": "I:VIX",
			"VIX":  "I:VIX",
		},
		loc: loc,
	}
}

func (p *PolygonProvider) Name() string { return "polygon" }

func (p *PolygonProvider) polygonSymbol(symbol string) string {
	if mapped, ok := p.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// polygonAggs is the aggregates response shape.
type polygonAggs struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Timestamp int64   `json:"t"`
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

func (p *PolygonProvider) fetchAggs(ticker string, from, to time.Time, limit int) ([]model.OHLCV, error) {
	p.Limiter.Acquire()

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		p.BaseURL, url.PathEscape(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"), limit, url.QueryEscape(p.APIKey))

	resp, err := p.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("polygon fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polygon read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polygon: status %d, body: %s", resp.StatusCode, string(body))
	}

	var aggs polygonAggs
	if err := json.Unmarshal(body, &aggs); err != nil {
		return nil, fmt.Errorf("polygon decode: %w", err)
	}
	if len(aggs.Results) == 0 {
		return nil, fmt.Errorf("polygon: no data for %s", ticker)
	}

	bars := make([]model.OHLCV, 0, len(aggs.Results))
	for _, r := range aggs.Results {
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(r.Timestamp).In(p.loc),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// barRange widens the calendar span so that weekends and holidays still
// leave enough trading days.
func (p *PolygonProvider) barRange(days int) (time.Time, time.Time) {
	end := time.Now().In(p.loc)
	start := end.AddDate(0, 0, -days*2)
	return start, end
}

func (p *PolygonProvider) IndexQuote(symbol string) (Quote, error) {
	// Daily aggregates only on the free tier: the latest bar stands in
	// for the live quote.
	start, end := p.barRange(3)
	bars, err := p.fetchAggs(p.polygonSymbol(symbol), start, end, 5)
	if err != nil {
		return Quote{}, err
	}
	last := bars[len(bars)-1]
	return Quote{Price: last.Close, High: last.High, At: last.Time}, nil
}

func (p *PolygonProvider) DailyBars(symbol string, days int) ([]model.OHLCV, error) {
	start, end := p.barRange(days)
	bars, err := p.fetchAggs(p.polygonSymbol(symbol), start, end, days)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (p *PolygonProvider) OptionQuote(ticker string) (float64, error) {
	bars, err := p.OptionBars(ticker, 3)
	if err != nil {
		return 0, err
	}
	return bars[len(bars)-1].Close, nil
}

func (p *PolygonProvider) OptionBars(ticker string, days int) ([]model.OHLCV, error) {
	start, end := p.barRange(days)
	bars, err := p.fetchAggs("O:"+ticker, start, end, days)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
