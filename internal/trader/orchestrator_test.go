package trader

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/arbot/internal/book"
	"github.com/quantfold/arbot/internal/domain"
	"github.com/quantfold/arbot/internal/ledger"
	"github.com/quantfold/arbot/internal/recorder"
)

var solUSDT = domain.Instrument{Base: "SOL", Quote: "USDT"}

// captureSink records every event for assertions.
type captureSink struct {
	events []domain.OpportunityEvent
}

func (s *captureSink) Record(_ context.Context, ev domain.OpportunityEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) Name() string { return "capture" }

type fixture struct {
	orch      *Orchestrator
	portfolio *ledger.Portfolio
	sink      *captureSink
}

func newFixture(t *testing.T, cfg Config, balances map[string]map[string]float64) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if cfg.TakerFees == nil {
		cfg.TakerFees = map[string]float64{"okx": 0.001, "bybit": 0.001}
	}
	if cfg.TradeSizeQuote == 0 {
		cfg.TradeSizeQuote = 100
	}
	if cfg.MaxSkew == 0 {
		cfg.MaxSkew = 500 * time.Millisecond
	}

	sink := &captureSink{}
	portfolio := ledger.NewPortfolio(balances, ledger.Config{Threshold: 0.2, Fraction: 0.5}, logger)
	orch := New(cfg, book.NewCache(10), portfolio, recorder.New([]recorder.Sink{sink}, logger), logger)
	return &fixture{orch: orch, portfolio: portfolio, sink: sink}
}

func crossSnapshots(at time.Time) (okx, bybit domain.OrderbookSnapshot) {
	okx = domain.OrderbookSnapshot{
		Venue:      "okx",
		Instrument: solUSDT,
		Bids:       []domain.PriceLevel{{Price: 99, Size: 5}},
		Asks:       []domain.PriceLevel{{Price: 100, Size: 5}},
		ReceivedAt: at,
	}
	bybit = domain.OrderbookSnapshot{
		Venue:      "bybit",
		Instrument: solUSDT,
		Bids:       []domain.PriceLevel{{Price: 101, Size: 5}},
		Asks:       []domain.PriceLevel{{Price: 102, Size: 5}},
		ReceivedAt: at.Add(50 * time.Millisecond),
	}
	return okx, bybit
}

func defaultBalances() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"okx":   {"USDT": 1000},
		"bybit": {"USDT": 1000, "SOL": 2},
	}
}

func TestHandleUpdateAcceptsAndApplies(t *testing.T) {
	f := newFixture(t, Config{MinProfitThreshold: 0.002}, defaultBalances())
	ctx := context.Background()

	a, b := crossSnapshots(time.Now())
	f.orch.HandleUpdate(ctx, a)
	require.Empty(t, f.sink.events, "a single venue cannot produce a match")

	f.orch.HandleUpdate(ctx, b)
	require.Len(t, f.sink.events, 1)

	ev := f.sink.events[0]
	assert.True(t, ev.Accepted)
	assert.NotEmpty(t, ev.Opportunity.ID)
	assert.False(t, ev.Opportunity.DetectedAt.IsZero())
	assert.Equal(t, "okx", ev.Opportunity.BuyVenue)
	assert.InDelta(t, 0.0079820, ev.Opportunity.Profit, 1e-6)

	bal := f.portfolio.Balances()
	assert.InDelta(t, 899.9, bal["okx"]["USDT"], 1e-9)
	assert.InDelta(t, 1, bal["okx"]["SOL"], 1e-9)
	assert.InDelta(t, 1, bal["bybit"]["SOL"], 1e-9)
	assert.InDelta(t, 1100.899, bal["bybit"]["USDT"], 1e-9)
}

func TestHandleUpdateBelowThreshold(t *testing.T) {
	f := newFixture(t, Config{MinProfitThreshold: 0.05}, defaultBalances())
	ctx := context.Background()

	a, b := crossSnapshots(time.Now())
	f.orch.HandleUpdate(ctx, a)
	f.orch.HandleUpdate(ctx, b)

	require.Len(t, f.sink.events, 1)
	ev := f.sink.events[0]
	assert.False(t, ev.Accepted)
	assert.Equal(t, domain.ReasonBelowThreshold, ev.Reason)
	assert.InDelta(t, 1000, f.portfolio.Balances()["okx"]["USDT"], 1e-9)
}

func TestHandleUpdateInsufficientFunds(t *testing.T) {
	f := newFixture(t, Config{MinProfitThreshold: 0.002}, map[string]map[string]float64{
		"okx":   {"USDT": 1000},
		"bybit": {"USDT": 1000}, // no SOL to sell
	})
	ctx := context.Background()

	a, b := crossSnapshots(time.Now())
	f.orch.HandleUpdate(ctx, a)
	f.orch.HandleUpdate(ctx, b)

	require.Len(t, f.sink.events, 1)
	ev := f.sink.events[0]
	assert.False(t, ev.Accepted)
	assert.Equal(t, domain.ReasonInsufficientFunds, ev.Reason)
}

func TestHandleUpdateMonitorModeNeverApplies(t *testing.T) {
	f := newFixture(t, Config{Monitor: true, MinProfitThreshold: 0.002}, defaultBalances())
	ctx := context.Background()

	a, b := crossSnapshots(time.Now())
	f.orch.HandleUpdate(ctx, a)
	f.orch.HandleUpdate(ctx, b)

	require.Len(t, f.sink.events, 1)
	assert.True(t, f.sink.events[0].Accepted)
	assert.InDelta(t, 1000, f.portfolio.Balances()["okx"]["USDT"], 1e-9)
}

func TestHandleUpdateStalePairSkipped(t *testing.T) {
	f := newFixture(t, Config{MinProfitThreshold: 0.002}, defaultBalances())
	ctx := context.Background()

	a, b := crossSnapshots(time.Now())
	b.ReceivedAt = a.ReceivedAt.Add(2 * time.Second)
	f.orch.HandleUpdate(ctx, a)
	f.orch.HandleUpdate(ctx, b)

	assert.Empty(t, f.sink.events)
}

func TestHandleUpdateDynamicThresholdRejects(t *testing.T) {
	f := newFixture(t, Config{
		MinProfitThreshold:   0.002,
		DynamicThreshold:     true,
		VolatilityMultiplier: 1000,
	}, defaultBalances())
	ctx := context.Background()

	// Swing the okx mid around to build up volatility before the match.
	base := time.Now()
	a, _ := crossSnapshots(base)
	noisy := a
	noisy.Bids = []domain.PriceLevel{{Price: 89, Size: 5}}
	noisy.Asks = []domain.PriceLevel{{Price: 90, Size: 5}}
	f.orch.HandleUpdate(ctx, a)
	f.orch.HandleUpdate(ctx, noisy)
	f.orch.HandleUpdate(ctx, a)

	_, b := crossSnapshots(time.Now())
	f.orch.HandleUpdate(ctx, b)

	require.Len(t, f.sink.events, 1)
	ev := f.sink.events[0]
	assert.False(t, ev.Accepted)
	assert.Equal(t, domain.ReasonBelowThreshold, ev.Reason)
	assert.Greater(t, ev.Threshold, 0.002)
	assert.Greater(t, ev.Volatility, 0.0)
}

// blockedSink stalls every delivery until released, standing in for a hung
// network sink.
type blockedSink struct {
	release chan struct{}
}

func (s *blockedSink) Record(ctx context.Context, _ domain.OpportunityEvent) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *blockedSink) Name() string { return "blocked" }

func TestHandleUpdateNotStalledBySlowSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slow := &blockedSink{release: make(chan struct{})}
	async := recorder.NewAsyncSink(slow, 8, logger)
	defer func() {
		close(slow.release)
		_ = async.Close()
	}()

	portfolio := ledger.NewPortfolio(defaultBalances(), ledger.Config{Threshold: 0.2, Fraction: 0.5}, logger)
	orch := New(Config{
		TakerFees:          map[string]float64{"okx": 0.001, "bybit": 0.001},
		TradeSizeQuote:     100,
		MinProfitThreshold: 0.002,
		MaxSkew:            500 * time.Millisecond,
	}, book.NewCache(10), portfolio, recorder.New([]recorder.Sink{async}, logger), logger)

	ctx := context.Background()
	a, b := crossSnapshots(time.Now())
	orch.HandleUpdate(ctx, a)

	// The match on the second update emits an event into the stalled sink;
	// the update goroutine must come straight back regardless.
	start := time.Now()
	orch.HandleUpdate(ctx, b)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestHandleUpdateTriangular(t *testing.T) {
	btcUSDT := domain.Instrument{Base: "BTC", Quote: "USDT"}
	ethBTC := domain.Instrument{Base: "ETH", Quote: "BTC"}
	ethUSDT := domain.Instrument{Base: "ETH", Quote: "USDT"}
	set := domain.TriangularSet{
		Legs:  [3]domain.Instrument{btcUSDT, ethBTC, ethUSDT},
		Start: "USDT",
	}
	require.NoError(t, set.Validate())

	f := newFixture(t, Config{
		MinProfitThreshold:    0.002,
		TriangularSets:        []domain.TriangularSet{set},
		TriangularStartAmount: 100,
	}, map[string]map[string]float64{
		"okx": {"USDT": 1000},
	})
	ctx := context.Background()

	now := time.Now()
	feed := func(inst domain.Instrument, bid, ask float64) {
		f.orch.HandleUpdate(ctx, domain.OrderbookSnapshot{
			Venue:      "okx",
			Instrument: inst,
			Bids:       []domain.PriceLevel{{Price: bid, Size: 1000}},
			Asks:       []domain.PriceLevel{{Price: ask, Size: 1000}},
			ReceivedAt: now,
		})
	}
	feed(btcUSDT, 9990, 10000)
	feed(ethBTC, 0.049, 0.05)
	feed(ethUSDT, 510, 515)

	require.Len(t, f.sink.events, 1)
	ev := f.sink.events[0]
	assert.True(t, ev.Accepted)
	assert.Equal(t, domain.OpportunityTriangular, ev.Opportunity.Kind)
	assert.Equal(t, "USDT->BTC->ETH->USDT", ev.Opportunity.Path)

	wantFinal := 102 * 0.999 * 0.999 * 0.999
	assert.InDelta(t, 1000+wantFinal-100, f.portfolio.Balances()["okx"]["USDT"], 1e-9)
}

func TestHandleUpdateTriangularStaleLegSkipped(t *testing.T) {
	btcUSDT := domain.Instrument{Base: "BTC", Quote: "USDT"}
	ethBTC := domain.Instrument{Base: "ETH", Quote: "BTC"}
	ethUSDT := domain.Instrument{Base: "ETH", Quote: "USDT"}
	set := domain.TriangularSet{
		Legs:  [3]domain.Instrument{btcUSDT, ethBTC, ethUSDT},
		Start: "USDT",
	}
	require.NoError(t, set.Validate())

	f := newFixture(t, Config{
		MinProfitThreshold:    0.002,
		TriangularSets:        []domain.TriangularSet{set},
		TriangularStartAmount: 100,
	}, map[string]map[string]float64{
		"okx": {"USDT": 1000},
	})
	ctx := context.Background()

	now := time.Now()
	feed := func(inst domain.Instrument, bid, ask float64, at time.Time) {
		f.orch.HandleUpdate(ctx, domain.OrderbookSnapshot{
			Venue:      "okx",
			Instrument: inst,
			Bids:       []domain.PriceLevel{{Price: bid, Size: 1000}},
			Asks:       []domain.PriceLevel{{Price: ask, Size: 1000}},
			ReceivedAt: at,
		})
	}
	// Same profitable cycle as above, but the middle leg's snapshot is 2s
	// older than the others, so the three legs never describe one market
	// state.
	feed(btcUSDT, 9990, 10000, now)
	feed(ethBTC, 0.049, 0.05, now.Add(-2*time.Second))
	feed(ethUSDT, 510, 515, now)

	assert.Empty(t, f.sink.events)
	assert.InDelta(t, 1000, f.portfolio.Balances()["okx"]["USDT"], 1e-9)
}
