package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/arbot/internal/domain"
)

var solUSDT = domain.Instrument{Base: "SOL", Quote: "USDT"}

func snap(venue string, bid, ask float64) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		Venue:      venue,
		Instrument: solUSDT,
		Bids:       []domain.PriceLevel{{Price: bid, Size: 10}},
		Asks:       []domain.PriceLevel{{Price: ask, Size: 10}},
		ReceivedAt: time.Now(),
	}
}

func TestCacheLatestWins(t *testing.T) {
	c := NewCache(10)
	c.Update(snap("okx", 99, 100))
	c.Update(snap("okx", 101, 102))

	got, ok := c.Snapshot("okx", solUSDT)
	require.True(t, ok)
	assert.InDelta(t, 101, got.BestBid(), 1e-12)
}

func TestCacheGetPerVenue(t *testing.T) {
	c := NewCache(10)
	c.Update(snap("okx", 99, 100))
	c.Update(snap("bybit", 100, 101))

	books := c.Get(solUSDT)
	require.Len(t, books, 2)
	assert.InDelta(t, 99, books["okx"].BestBid(), 1e-12)
	assert.InDelta(t, 100, books["bybit"].BestBid(), 1e-12)

	_, ok := c.Snapshot("binance", solUSDT)
	assert.False(t, ok)
}

func TestCacheVolatilityNeedsTwoSamples(t *testing.T) {
	c := NewCache(10)
	assert.Zero(t, c.Volatility(solUSDT))

	c.Update(snap("okx", 99, 101))
	assert.Zero(t, c.Volatility(solUSDT))
}

func TestCacheVolatilityFromMidReturns(t *testing.T) {
	c := NewCache(10)
	// Mids 100, 110, 100: returns +10% and -9.09%.
	c.Update(snap("okx", 99, 101))
	c.Update(snap("okx", 109, 111))
	c.Update(snap("okx", 99, 101))

	r1 := 0.1
	r2 := (100.0 - 110.0) / 110.0
	mean := (r1 + r2) / 2
	want := r1 - mean // population stddev of two symmetric deviations
	assert.InDelta(t, want, c.Volatility(solUSDT), 1e-12)
}

func TestCacheVolatilityConstantMid(t *testing.T) {
	c := NewCache(10)
	for i := 0; i < 5; i++ {
		c.Update(snap("okx", 99, 101))
	}
	assert.Zero(t, c.Volatility(solUSDT))
}

func TestCacheVolatilityWindowEvicts(t *testing.T) {
	c := NewCache(3)
	// Four samples into a window of three: the first 100 falls out, leaving
	// mids 100, 100, 200 with returns 0 and +100%.
	c.Update(snap("okx", 99, 101))
	c.Update(snap("okx", 99, 101))
	c.Update(snap("okx", 99, 101))
	c.Update(snap("okx", 199, 201))

	assert.InDelta(t, 0.5, c.Volatility(solUSDT), 1e-12)
}

func TestCacheUnusableSnapshotStoredButNotSampled(t *testing.T) {
	c := NewCache(10)
	oneSided := domain.OrderbookSnapshot{
		Venue:      "okx",
		Instrument: solUSDT,
		Asks:       []domain.PriceLevel{{Price: 100, Size: 1}},
	}
	c.Update(oneSided)
	c.Update(oneSided)
	c.Update(oneSided)

	_, ok := c.Snapshot("okx", solUSDT)
	assert.True(t, ok)
	assert.Zero(t, c.Volatility(solUSDT))
}
