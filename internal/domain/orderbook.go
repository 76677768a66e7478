package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook side. Size is
// denominated in the instrument's base currency.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for one instrument on
// one venue. Bids are sorted descending by price, asks ascending. ReceivedAt
// is assigned from the local clock when the message arrives, never taken from
// the venue. A snapshot is immutable once constructed; a newer update
// replaces it wholesale in the cache.
type OrderbookSnapshot struct {
	Venue      string
	Instrument Instrument
	Bids       []PriceLevel
	Asks       []PriceLevel
	ReceivedAt time.Time
}

// Usable reports whether the snapshot has at least one level on both sides.
// A snapshot with an empty side is incomplete and must never be matched.
func (s OrderbookSnapshot) Usable() bool {
	return len(s.Bids) > 0 && len(s.Asks) > 0
}

// BestBid returns the highest bid price, or 0 for an empty bid side.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 for an empty ask side.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// MidPrice returns (best bid + best ask) / 2, or 0 if either side is empty.
func (s OrderbookSnapshot) MidPrice() float64 {
	if !s.Usable() {
		return 0
	}
	return (s.Bids[0].Price + s.Asks[0].Price) / 2
}
