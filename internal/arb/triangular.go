package arb

import (
	"strings"

	"github.com/quantfold/arbot/internal/domain"
)

// FindTriangular looks for a profitable three-leg cycle on a single venue.
// books must hold a snapshot for each leg of the validated set; startAmount
// is denominated in the set's start currency and fee is the venue taker fee
// applied once per leg.
//
// Both cycle directions are evaluated (legs in order and legs reversed) and
// the more profitable one is returned. Leg orientation is derived from the
// currency held entering the leg: holding the instrument's quote means
// buying base off the asks, holding its base means selling into the bids.
func FindTriangular(books map[domain.Instrument]domain.OrderbookSnapshot, set domain.TriangularSet, startAmount, fee float64) (domain.Opportunity, bool) {
	if startAmount <= 0 {
		return domain.Opportunity{}, false
	}
	for _, leg := range set.Legs {
		snap, ok := books[leg]
		if !ok || !snap.Usable() {
			return domain.Opportunity{}, false
		}
	}

	forward := set.Legs
	reverse := [3]domain.Instrument{set.Legs[2], set.Legs[1], set.Legs[0]}

	var best domain.Opportunity
	found := false
	for _, legs := range [][3]domain.Instrument{forward, reverse} {
		final, path, ok := runCycle(books, legs, set.Start, startAmount, fee)
		if !ok {
			continue
		}
		profit := final/startAmount - 1
		if profit <= 0 {
			continue
		}
		if !found || profit > best.Profit {
			best = domain.Opportunity{
				Kind:         domain.OpportunityTriangular,
				Venue:        books[legs[0]].Venue,
				Path:         path,
				StartAmount:  startAmount,
				FinalAmount:  final,
				QuoteCost:    startAmount,
				QuoteRevenue: final,
				Profit:       profit,
			}
			found = true
		}
	}
	return best, found
}

// runCycle converts amount of the start currency through the three legs in
// order, deducting the taker fee from each leg's output. It fails when any
// leg cannot convert at least minFillRatio of its input.
func runCycle(books map[domain.Instrument]domain.OrderbookSnapshot, legs [3]domain.Instrument, start string, amount, fee float64) (final float64, path string, ok bool) {
	hops := []string{start}
	cur := start
	held := amount
	for _, leg := range legs {
		if !leg.Contains(cur) {
			return 0, "", false
		}
		out, next, legOK := convertLeg(books[leg], cur, held, fee)
		if !legOK {
			return 0, "", false
		}
		held = out
		cur = next
		hops = append(hops, cur)
	}
	if cur != start {
		return 0, "", false
	}
	return held, strings.Join(hops, "->"), true
}

// convertLeg realizes amount of the holding currency against one instrument's
// book and returns the output amount in the counterpart currency, after the
// taker fee.
func convertLeg(snap domain.OrderbookSnapshot, holding string, amount, fee float64) (out float64, next string, ok bool) {
	inst := snap.Instrument
	switch holding {
	case inst.Quote:
		// Spend quote on the asks to obtain base.
		base, spent := fillQuote(snap.Asks, amount)
		if base <= 0 || spent < amount*minFillRatio {
			return 0, "", false
		}
		return base * (1 - fee), inst.Base, true
	case inst.Base:
		// Sell base into the bids to obtain quote.
		fill := Fill(snap.Bids, amount)
		if fill.Filled < amount*minFillRatio {
			return 0, "", false
		}
		return fill.QuoteAmount * (1 - fee), inst.Quote, true
	default:
		return 0, "", false
	}
}
