// Package ledger simulates per-venue asset balances for paper trading. The
// portfolio is the single writer of balance state: connectors and detectors
// never touch balances except through Apply and Rebalance.
package ledger

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/quantfold/arbot/internal/domain"
)

// Config holds the rebalancing policy.
type Config struct {
	// Threshold is the relative deviation from the even split that triggers
	// a rebalance transfer, e.g. 0.2 for 20%.
	Threshold float64
	// Fraction of the excess moved per rebalance pass, e.g. 0.5.
	Fraction float64
}

// Transfer describes one bookkeeping move performed by Rebalance.
type Transfer struct {
	Currency string
	From     string
	To       string
	Amount   float64
}

// Portfolio holds simulated balances per venue and currency. All methods are
// safe for concurrent use; Apply is atomic with respect to concurrent reads.
type Portfolio struct {
	mu       sync.Mutex
	balances map[string]map[string]float64
	cfg      Config
	logger   *slog.Logger
}

// NewPortfolio creates a portfolio seeded with the given initial balances.
// The map is copied; callers keep no handle into portfolio state.
func NewPortfolio(initial map[string]map[string]float64, cfg Config, logger *slog.Logger) *Portfolio {
	balances := make(map[string]map[string]float64, len(initial))
	for venue, assets := range initial {
		balances[venue] = make(map[string]float64, len(assets))
		for currency, amount := range assets {
			if amount > 0 {
				balances[venue][currency] = amount
			}
		}
	}
	return &Portfolio{
		balances: balances,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "portfolio")),
	}
}

// Apply validates the opportunity against current balances and, if every leg
// is funded, debits and credits all affected balances. It returns false and
// changes nothing when any balance is short; insufficient funds is a normal
// outcome, not a fault.
func (p *Portfolio) Apply(opp domain.Opportunity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch opp.Kind {
	case domain.OpportunityCrossVenue:
		return p.applyCrossVenue(opp)
	case domain.OpportunityTriangular:
		return p.applyTriangular(opp)
	default:
		return false
	}
}

func (p *Portfolio) applyCrossVenue(opp domain.Opportunity) bool {
	base := opp.Instrument.Base
	quote := opp.Instrument.Quote

	if p.balances[opp.BuyVenue] == nil || p.balances[opp.SellVenue] == nil {
		return false
	}
	if p.balances[opp.BuyVenue][quote] < opp.QuoteCost {
		return false
	}
	if p.balances[opp.SellVenue][base] < opp.BaseAmount {
		return false
	}

	p.balances[opp.BuyVenue][quote] -= opp.QuoteCost
	p.balances[opp.BuyVenue][base] += opp.BaseAmount
	p.balances[opp.SellVenue][base] -= opp.BaseAmount
	p.balances[opp.SellVenue][quote] += opp.QuoteRevenue
	return true
}

// applyTriangular nets the cycle on its single venue: the start currency is
// debited by the cycle input and credited with the cycle output. The
// intermediate legs cancel out by construction.
func (p *Portfolio) applyTriangular(opp domain.Opportunity) bool {
	currency := startCurrency(opp.Path)
	if currency == "" || p.balances[opp.Venue] == nil {
		return false
	}
	if p.balances[opp.Venue][currency] < opp.StartAmount {
		return false
	}
	p.balances[opp.Venue][currency] += opp.FinalAmount - opp.StartAmount
	return true
}

// Rebalance evens out currencies held on more than one venue. For each
// currency whose holding on some venue deviates from the ideal even split by
// more than the configured threshold, a configured fraction of the excess
// moves from the most over-allocated venue to the most under-allocated one.
// The transfer is pure bookkeeping; no market impact is modeled.
func (p *Portfolio) Rebalance() []Transfer {
	p.mu.Lock()
	defer p.mu.Unlock()

	var transfers []Transfer
	for _, currency := range p.currenciesLocked() {
		venues := make([]string, 0, len(p.balances))
		total := 0.0
		for venue, assets := range p.balances {
			if _, held := assets[currency]; held {
				venues = append(venues, venue)
				total += assets[currency]
			}
		}
		if len(venues) < 2 || total <= 0 {
			continue
		}
		ideal := total / float64(len(venues))

		over, under := "", ""
		for _, venue := range venues {
			bal := p.balances[venue][currency]
			if over == "" || bal > p.balances[over][currency] {
				over = venue
			}
			if under == "" || bal < p.balances[under][currency] {
				under = venue
			}
		}
		deviation := (p.balances[over][currency] - ideal) / ideal
		if deviation <= p.cfg.Threshold {
			continue
		}

		amount := (p.balances[over][currency] - ideal) * p.cfg.Fraction
		p.balances[over][currency] -= amount
		p.balances[under][currency] += amount
		transfers = append(transfers, Transfer{
			Currency: currency,
			From:     over,
			To:       under,
			Amount:   amount,
		})
		p.logger.Info("rebalanced holdings",
			slog.String("currency", currency),
			slog.String("from", over),
			slog.String("to", under),
			slog.Float64("amount", amount),
		)
	}
	return transfers
}

// Balances returns a deep copy of the current balances for heartbeat logging
// and inspection.
func (p *Portfolio) Balances() map[string]map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]map[string]float64, len(p.balances))
	for venue, assets := range p.balances {
		out[venue] = make(map[string]float64, len(assets))
		for currency, amount := range assets {
			out[venue][currency] = amount
		}
	}
	return out
}

// currenciesLocked returns the distinct currencies across all venues in a
// stable order. Caller must hold p.mu.
func (p *Portfolio) currenciesLocked() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, assets := range p.balances {
		for currency := range assets {
			if _, ok := seen[currency]; !ok {
				seen[currency] = struct{}{}
				out = append(out, currency)
			}
		}
	}
	sort.Strings(out)
	return out
}

// startCurrency extracts the cycle's start currency from a triangular path
// like "USDT->BTC->ETH->USDT".
func startCurrency(path string) string {
	currency, _, ok := strings.Cut(path, "->")
	if !ok {
		return ""
	}
	return currency
}
