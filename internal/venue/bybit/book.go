package bybit

import (
	"sort"
	"strconv"

	"github.com/quantfold/arbot/internal/domain"
)

// localBook reassembles one symbol's book from the snapshot/delta stream.
// Bybit sends a full snapshot on subscribe and level deltas afterwards; a
// delta row with size 0 removes the level. The book is confined to a single
// connection's read goroutine, so no locking is needed, and it is discarded
// on reconnect because the venue resends a snapshot.
type localBook struct {
	bids map[float64]float64
	asks map[float64]float64
}

func newLocalBook() *localBook {
	return &localBook{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

func (b *localBook) applySnapshot(push *bookPush) {
	b.bids = make(map[float64]float64, len(push.Bids))
	b.asks = make(map[float64]float64, len(push.Asks))
	applyRows(b.bids, push.Bids)
	applyRows(b.asks, push.Asks)
}

func (b *localBook) applyDelta(push *bookPush) {
	applyRows(b.bids, push.Bids)
	applyRows(b.asks, push.Asks)
}

// applyRows upserts parsed rows into the side map. Unparseable rows are
// skipped; zero size removes the level.
func applyRows(side map[float64]float64, rows [][]string) {
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil || price <= 0 {
			continue
		}
		size, err := strconv.ParseFloat(row[1], 64)
		if err != nil || size < 0 {
			continue
		}
		if size == 0 {
			delete(side, price)
			continue
		}
		side[price] = size
	}
}

// levels materializes the current book as sorted price levels, bids
// descending and asks ascending.
func (b *localBook) levels() (bids, asks []domain.PriceLevel) {
	bids = sideLevels(b.bids, true)
	asks = sideLevels(b.asks, false)
	return bids, asks
}

func sideLevels(side map[float64]float64, descending bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(side))
	for price, size := range side {
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}
