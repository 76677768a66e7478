package arb

import "github.com/quantfold/arbot/internal/domain"

// FindCrossVenue looks for a two-venue arbitrage between snapshots a and b of
// the same instrument. sizeQuote is the target notional in quote currency;
// feeA and feeB are the venues' taker fees as fractions.
//
// A cheap top-of-book pre-check rejects non-crossed markets before any depth
// walk runs. On a crossed market both directions are evaluated and the
// profitable one is returned; profit here is gross of the caller's threshold,
// so the caller still decides acceptance.
func FindCrossVenue(a, b domain.OrderbookSnapshot, sizeQuote, feeA, feeB float64) (domain.Opportunity, bool) {
	if !a.Usable() || !b.Usable() || sizeQuote <= 0 {
		return domain.Opportunity{}, false
	}

	// Crossed-market pre-check: no overlap, no opportunity.
	if !(a.BestAsk() < b.BestBid() || b.BestAsk() < a.BestBid()) {
		return domain.Opportunity{}, false
	}

	var best domain.Opportunity
	found := false
	if opp, ok := crossDirection(a, b, sizeQuote, feeA, feeB); ok {
		best, found = opp, true
	}
	if opp, ok := crossDirection(b, a, sizeQuote, feeB, feeA); ok {
		if !found || opp.Profit > best.Profit {
			best, found = opp, true
		}
	}
	return best, found
}

// crossDirection prices buying on buy's asks and selling the obtained
// quantity on sell's bids. The achievable buy quantity bounds the sell leg;
// the originally requested quantity does not carry over.
func crossDirection(buy, sell domain.OrderbookSnapshot, sizeQuote, buyFee, sellFee float64) (domain.Opportunity, bool) {
	targetBase := sizeQuote / buy.BestAsk()
	buyFill := Fill(buy.Asks, targetBase)
	if buyFill.Filled <= 0 {
		return domain.Opportunity{}, false
	}

	sellFill := Fill(sell.Bids, buyFill.Filled)
	if sellFill.Filled < buyFill.Filled*minFillRatio {
		// Not enough counter-liquidity to offload what we'd buy.
		return domain.Opportunity{}, false
	}

	cost := buyFill.QuoteAmount * (1 + buyFee)
	revenue := sellFill.QuoteAmount * (1 - sellFee)
	if cost <= 0 {
		return domain.Opportunity{}, false
	}
	profit := revenue/cost - 1
	if profit <= 0 {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		Kind:         domain.OpportunityCrossVenue,
		Instrument:   buy.Instrument,
		BuyVenue:     buy.Venue,
		SellVenue:    sell.Venue,
		BuyPrice:     buyFill.AvgPrice,
		SellPrice:    sellFill.AvgPrice,
		BaseAmount:   sellFill.Filled,
		QuoteCost:    cost,
		QuoteRevenue: revenue,
		Profit:       profit,
	}, true
}
