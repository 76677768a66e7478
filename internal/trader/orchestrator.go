// Package trader drives the paper-trading loop: every orderbook update flows
// through the cache, the detection functions, the risk gates, and finally the
// ledger and the event recorder. Detection itself stays pure; everything
// stateful lives behind the cache, the portfolio, and the recorder.
package trader

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfold/arbot/internal/arb"
	"github.com/quantfold/arbot/internal/book"
	"github.com/quantfold/arbot/internal/domain"
	"github.com/quantfold/arbot/internal/ledger"
	"github.com/quantfold/arbot/internal/recorder"
)

// Config holds the orchestrator's trading parameters.
type Config struct {
	// Monitor disables ledger application: opportunities are detected and
	// recorded but balances never move.
	Monitor bool

	// TakerFees maps venue name to taker fee fraction.
	TakerFees map[string]float64

	TradeSizeQuote     float64
	MinProfitThreshold float64
	MaxSkew            time.Duration

	DynamicThreshold     bool
	VolatilityMultiplier float64

	TriangularSets        []domain.TriangularSet
	TriangularStartAmount float64

	HeartbeatInterval time.Duration
}

// Orchestrator evaluates every incoming snapshot against all venues and
// configured triangular sets, and runs the periodic heartbeat.
type Orchestrator struct {
	cfg       Config
	cache     *book.Cache
	portfolio *ledger.Portfolio
	rec       *recorder.Recorder
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config, cache *book.Cache, portfolio *ledger.Portfolio, rec *recorder.Recorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		cache:     cache,
		portfolio: portfolio,
		rec:       rec,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// HandleUpdate ingests one orderbook snapshot and runs every detection path
// the update could have changed: cross-venue matches against every other
// venue quoting the same instrument, and each triangular set the instrument
// belongs to on the updating venue.
func (o *Orchestrator) HandleUpdate(ctx context.Context, snap domain.OrderbookSnapshot) {
	o.cache.Update(snap)
	if !snap.Usable() {
		return
	}

	o.evaluateCrossVenue(ctx, snap)
	for _, set := range o.cfg.TriangularSets {
		if set.Contains(snap.Instrument) {
			o.evaluateTriangular(ctx, snap.Venue, snap.Instrument, set)
		}
	}
}

func (o *Orchestrator) evaluateCrossVenue(ctx context.Context, snap domain.OrderbookSnapshot) {
	peers := o.cache.Get(snap.Instrument)
	for venue, other := range peers {
		if venue == snap.Venue {
			continue
		}
		if arb.IsStale(snap.ReceivedAt, other.ReceivedAt, o.cfg.MaxSkew) {
			continue
		}
		opp, ok := arb.FindCrossVenue(snap, other, o.cfg.TradeSizeQuote,
			o.cfg.TakerFees[snap.Venue], o.cfg.TakerFees[venue])
		if !ok {
			continue
		}
		o.settle(ctx, opp, snap.Instrument)
	}
}

func (o *Orchestrator) evaluateTriangular(ctx context.Context, venue string, updated domain.Instrument, set domain.TriangularSet) {
	// A cycle executes entirely on the updating venue; legs are never mixed
	// across venues.
	books := make(map[domain.Instrument]domain.OrderbookSnapshot, len(set.Legs))
	var oldest, newest time.Time
	for _, leg := range set.Legs {
		legSnap, ok := o.cache.Snapshot(venue, leg)
		if !ok || !legSnap.Usable() {
			return
		}
		books[leg] = legSnap
		if oldest.IsZero() || legSnap.ReceivedAt.Before(oldest) {
			oldest = legSnap.ReceivedAt
		}
		if legSnap.ReceivedAt.After(newest) {
			newest = legSnap.ReceivedAt
		}
	}
	// The three legs must describe one concurrent market state.
	if arb.IsStale(oldest, newest, o.cfg.MaxSkew) {
		return
	}

	opp, ok := arb.FindTriangular(books, set, o.cfg.TriangularStartAmount, o.cfg.TakerFees[venue])
	if !ok {
		return
	}
	o.settle(ctx, opp, updated)
}

// settle stamps the opportunity, applies the threshold gate and the ledger,
// and emits exactly one event describing the outcome.
func (o *Orchestrator) settle(ctx context.Context, opp domain.Opportunity, inst domain.Instrument) {
	opp.ID = uuid.NewString()
	opp.DetectedAt = time.Now()

	volatility := o.cache.Volatility(inst)
	threshold := o.cfg.MinProfitThreshold
	if o.cfg.DynamicThreshold {
		threshold = arb.DynamicThreshold(threshold, volatility, o.cfg.VolatilityMultiplier)
	}

	ev := domain.OpportunityEvent{
		Opportunity: opp,
		Threshold:   threshold,
		Volatility:  volatility,
		At:          opp.DetectedAt,
	}

	switch {
	case opp.Profit < threshold:
		ev.Reason = domain.ReasonBelowThreshold
	case o.cfg.Monitor:
		ev.Accepted = true
	case !o.portfolio.Apply(opp):
		ev.Reason = domain.ReasonInsufficientFunds
	default:
		ev.Accepted = true
	}

	_ = o.rec.Record(ctx, ev)
}

// RunHeartbeat logs balances and runs a rebalance pass on the configured
// interval until ctx is cancelled.
func (o *Orchestrator) RunHeartbeat(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.logBalances()
			if !o.cfg.Monitor {
				o.portfolio.Rebalance()
			}
		}
	}
}

func (o *Orchestrator) logBalances() {
	for venue, assets := range o.portfolio.Balances() {
		attrs := []any{slog.String("venue", venue)}
		for currency, amount := range assets {
			attrs = append(attrs, slog.Float64(currency, amount))
		}
		o.logger.Info("balances", attrs...)
	}
}
