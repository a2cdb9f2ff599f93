package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OptionSentinel/internal/config"
	"OptionSentinel/internal/dedup"
	"OptionSentinel/internal/marketdata"
	"OptionSentinel/internal/model"
)

// tickTime is 10:00 ET on a regular Tuesday.
var tickTime = time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)

type stubSource struct {
	mu sync.Mutex

	inputs    *marketdata.IndexInputs
	inputsErr error
	// blockInputs, when set, is received from before IndexSnapshotInputs
	// returns. Used to hold a tick open.
	blockInputs chan struct{}

	quotes   map[int64]float64
	quoteErr map[int64]error
	panicOn  map[int64]bool
	vol      *model.VolatilityInputs
	volErr   error
	volCalls int
	idxCalls int
	clearCnt int
}

func (s *stubSource) IndexSnapshotInputs() (*marketdata.IndexInputs, error) {
	s.mu.Lock()
	s.idxCalls++
	block := s.blockInputs
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.inputs, s.inputsErr
}

func (s *stubSource) OptionQuote(p *model.Position) (float64, error) {
	if s.panicOn[p.ID] {
		panic("quote decode blew up")
	}
	if err, ok := s.quoteErr[p.ID]; ok {
		return 0, err
	}
	return s.quotes[p.ID], nil
}

func (s *stubSource) VolatilityInputs() (*model.VolatilityInputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volCalls++
	return s.vol, s.volErr
}

func (s *stubSource) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCnt++
}

type priceUpdate struct {
	id           int64
	price        float64
	maxProfitPct float64
}

type loggedAlert struct {
	rule      string
	delivered bool
	errMsg    string
}

type stubStore struct {
	mu sync.Mutex

	positions    []*model.Position
	positionsErr error
	updates      []priceUpdate
	alerts       []loggedAlert
	upserts      int
	purgeArgs    []int
}

func (s *stubStore) Positions() ([]*model.Position, error) {
	return s.positions, s.positionsErr
}

func (s *stubStore) UpdatePositionPrice(id int64, price, maxProfitPct float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, priceUpdate{id, price, maxProfitPct})
	return nil
}

func (s *stubStore) LogAlert(evt *model.AlertEvent, delivered bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, loggedAlert{evt.RuleName, delivered, errMsg})
	return nil
}

func (s *stubStore) UpsertDailyIndexData(date time.Time, closePrice, highPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	return nil
}

func (s *stubStore) PurgeOld(alertDays, indexDays int, now time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeArgs = append(s.purgeArgs, alertDays, indexDays)
	return 0, 0, nil
}

type stubSender struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (s *stubSender) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func (s *stubSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// flatInputs yields a 220-bar flat history at 400. With a quote below
// 400 the lower Bollinger band (which collapses onto the mean) is
// breached, so only the extreme-oversold entry rule fires.
func flatInputs(quotePrice float64) *marketdata.IndexInputs {
	bars := make([]model.OHLCV, 220)
	day := tickTime.AddDate(0, 0, -len(bars))
	for i := range bars {
		bars[i] = model.OHLCV{
			Time:   day.AddDate(0, 0, i),
			Open:   400, High: 401, Low: 399, Close: 400,
			Volume: 50_000_000,
		}
	}
	return &marketdata.IndexInputs{
		Bars:  bars,
		Quote: marketdata.Quote{Price: quotePrice, High: quotePrice + 1, At: tickTime},
	}
}

func testPosition(id int64, entryPrice float64) *model.Position {
	return &model.Position{
		ID:         id,
		Underlying: "QQQ",
		Kind:       model.Call,
		Strike:     600,
		EntryPrice: entryPrice,
		EntryDate:  tickTime.AddDate(0, 0, -60),
		Expiration: tickTime.AddDate(0, 0, 400),
	}
}

type fixture struct {
	c      *Coordinator
	source *stubSource
	store  *stubStore
	sender *stubSender
	cfg    config.Rules
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		source: &stubSource{
			inputs: flatInputs(399),
			quotes: map[int64]float64{},
			vol:    &model.VolatilityInputs{Last: 20, PrevClose: 19, Avg20: 18},
		},
		store:  &stubStore{},
		sender: &stubSender{},
		cfg:    config.DefaultRules(),
	}
	dd := dedup.NewWithClock(time.UTC, func() time.Time { return tickTime })
	f.c = New(f.source, f.store, f.sender, dd,
		func() *config.Rules { return &f.cfg },
		func(time.Time) bool { return true },
		Retention{AlertLogDays: 90, IndexDataDays: 30},
		time.UTC, zerolog.Nop())
	f.c.SetClock(func() time.Time { return tickTime })
	return f
}

func TestRunTick_OutsideTradingHoursIsNoOp(t *testing.T) {
	f := newFixture(t)
	var gateCalls int
	f.c.isTradingTime = func(time.Time) bool { gateCalls++; return false }

	f.c.RunTick(context.Background())

	assert.Equal(t, 1, gateCalls)
	assert.Zero(t, f.source.idxCalls)
	assert.Empty(t, f.sender.sent())
}

func TestRunTick_IndexEntryDispatched(t *testing.T) {
	f := newFixture(t)

	f.c.RunTick(context.Background())

	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "极端超卖")

	require.Len(t, f.store.alerts, 1)
	assert.Equal(t, "Level 3 Entry", f.store.alerts[0].rule)
	assert.True(t, f.store.alerts[0].delivered)

	// A critical signal triggers exactly one volatility-proxy fetch for
	// the annex, and the daily index row is persisted.
	assert.Equal(t, 1, f.source.volCalls)
	assert.Equal(t, 1, f.store.upserts)
}

func TestRunTick_DedupSuppressesRepeatWithinDay(t *testing.T) {
	f := newFixture(t)

	f.c.RunTick(context.Background())
	f.c.RunTick(context.Background())

	assert.Len(t, f.sender.sent(), 1)
	assert.Len(t, f.store.alerts, 1)
}

func TestRunTick_QuietMarketSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.source.inputs = flatInputs(400.5)

	f.c.RunTick(context.Background())

	assert.Empty(t, f.sender.sent())
	assert.Zero(t, f.source.volCalls)
}

func TestRunTick_PositionFaultIsolation(t *testing.T) {
	f := newFixture(t)
	f.source.inputs = flatInputs(400.5) // keep the index quiet

	f.store.positions = []*model.Position{
		testPosition(1, 10), testPosition(2, 10), testPosition(3, 10),
	}
	f.source.quoteErr = map[int64]error{1: marketdata.ErrNoData}
	f.source.panicOn = map[int64]bool{2: true}
	f.source.quotes = map[int64]float64{3: 16} // +60%, hard take profit

	f.c.RunTick(context.Background())

	// Positions 1 and 2 were skipped without aborting the tick.
	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "硬性止盈")

	require.Len(t, f.store.updates, 1)
	assert.Equal(t, int64(3), f.store.updates[0].id)
	assert.Equal(t, 16.0, f.store.updates[0].price)
}

func TestRunTick_MaxProfitHighWaterMonotonic(t *testing.T) {
	f := newFixture(t)
	f.source.inputs = flatInputs(400.5)

	p := testPosition(1, 10)
	p.MaxProfitPct = 40
	f.store.positions = []*model.Position{p}
	f.source.quotes = map[int64]float64{1: 12} // pnl 20, below the mark

	f.c.RunTick(context.Background())

	require.Len(t, f.store.updates, 1)
	assert.Equal(t, 40.0, f.store.updates[0].maxProfitPct, "high-water mark never drops")

	// The drawdown from the mark fires the trailing stop.
	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "移动止盈")

	// A new high raises the mark.
	f.source.quotes[1] = 16
	f.c.RunTick(context.Background())
	require.Len(t, f.store.updates, 2)
	assert.Equal(t, 60.0, f.store.updates[1].maxProfitPct)
}

func TestRunTick_DeliveryFailureRecorded(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("webhook 503")

	f.c.RunTick(context.Background())

	require.Len(t, f.store.alerts, 1)
	assert.False(t, f.store.alerts[0].delivered)
	assert.Equal(t, "webhook 503", f.store.alerts[0].errMsg)
}

func TestRunTick_IndexOutageStillChecksPositions(t *testing.T) {
	f := newFixture(t)
	f.source.inputs = nil
	f.source.inputsErr = marketdata.ErrNoData

	f.store.positions = []*model.Position{testPosition(1, 10)}
	f.source.quotes = map[int64]float64{1: 16}

	f.c.RunTick(context.Background())

	// No index alert and no daily row, but the position exit still ran.
	assert.Zero(t, f.store.upserts)
	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "硬性止盈")
}

func TestRunTick_OverlappingFireSkipped(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.source.blockInputs = release

	done := make(chan struct{})
	go func() {
		f.c.RunTick(context.Background())
		close(done)
	}()

	// Wait until the first tick is inside the data fetch.
	require.Eventually(t, func() bool {
		f.source.mu.Lock()
		defer f.source.mu.Unlock()
		return f.source.idxCalls == 1
	}, time.Second, time.Millisecond)

	// The overlapping fire returns immediately without fetching.
	f.c.RunTick(context.Background())
	f.source.mu.Lock()
	assert.Equal(t, 1, f.source.idxCalls)
	f.source.mu.Unlock()

	close(release)
	<-done
}

func TestRunMaintenance(t *testing.T) {
	f := newFixture(t)

	f.c.RunMaintenance(context.Background())

	assert.Equal(t, []int{90, 30}, f.store.purgeArgs)
	assert.Equal(t, 1, f.source.clearCnt)
}

func TestRunMaintenance_DedupRolloverAllowsNextDay(t *testing.T) {
	f := newFixture(t)
	now := tickTime
	clock := func() time.Time { return now }
	f.c.SetClock(clock)
	f.c.dedup = dedup.NewWithClock(time.UTC, clock)

	f.c.RunTick(context.Background())
	require.Len(t, f.sender.sent(), 1)

	// Next day: maintenance rolls the ledger, then the same rule may
	// fire again.
	now = tickTime.AddDate(0, 0, 1)
	f.c.RunMaintenance(context.Background())

	f.c.RunTick(context.Background())
	assert.Len(t, f.sender.sent(), 2)
}
