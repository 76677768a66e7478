// Package arb contains the pure arbitrage detection functions. Everything in
// this package computes from snapshot values passed in by the caller; nothing
// here touches shared state, the clock, or the network.
package arb

import "github.com/quantfold/arbot/internal/domain"

// minFillRatio is the fraction of a requested quantity that a dependent leg
// must fill for an opportunity to count. Anything less means the book lacked
// counter-liquidity and the trade would leave unhedged inventory.
const minFillRatio = 0.99

// Fill walks one orderbook side to fill qty base units and returns the
// volume-weighted result. The walk is depth-limited: exhausting the book
// returns the partial fill rather than an error, and the result never claims
// more liquidity than the levels actually hold.
func Fill(levels []domain.PriceLevel, qty float64) domain.ExecutionFill {
	if qty <= 0 {
		return domain.ExecutionFill{}
	}

	var filled, quote float64
	remaining := qty
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		vol := min(remaining, lvl.Size)
		quote += vol * lvl.Price
		filled += vol
		remaining -= vol
	}
	if filled == 0 {
		return domain.ExecutionFill{}
	}
	return domain.ExecutionFill{
		AvgPrice:    quote / filled,
		Filled:      filled,
		QuoteAmount: quote,
	}
}

// fillQuote walks the ask side spending up to quoteBudget of quote currency
// and returns the base quantity obtained plus the quote actually spent.
func fillQuote(asks []domain.PriceLevel, quoteBudget float64) (base, spent float64) {
	if quoteBudget <= 0 {
		return 0, 0
	}
	remaining := quoteBudget
	for _, lvl := range asks {
		if remaining <= 0 {
			break
		}
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		vol := min(lvl.Size, remaining/lvl.Price)
		base += vol
		spent += vol * lvl.Price
		remaining -= vol * lvl.Price
	}
	return base, spent
}
