package recorder

import (
	"context"
	"log/slog"

	"github.com/quantfold/arbot/internal/domain"
)

// ConsoleSink writes one structured log line per event.
type ConsoleSink struct {
	logger *slog.Logger
}

// NewConsoleSink creates a sink logging through the given logger.
func NewConsoleSink(logger *slog.Logger) *ConsoleSink {
	return &ConsoleSink{logger: logger.With(slog.String("component", "paper_trades"))}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return "console" }

// Record implements Sink.
func (s *ConsoleSink) Record(ctx context.Context, ev domain.OpportunityEvent) error {
	attrs := []any{
		slog.String("opp_id", ev.Opportunity.ID),
		slog.String("kind", string(ev.Opportunity.Kind)),
		slog.Float64("profit_pct", ev.Opportunity.Profit*100),
		slog.Float64("threshold", ev.Threshold),
		slog.Float64("volatility", ev.Volatility),
	}
	switch ev.Opportunity.Kind {
	case domain.OpportunityCrossVenue:
		attrs = append(attrs,
			slog.String("instrument", ev.Opportunity.Instrument.String()),
			slog.String("buy_venue", ev.Opportunity.BuyVenue),
			slog.String("sell_venue", ev.Opportunity.SellVenue),
			slog.Float64("base_amount", ev.Opportunity.BaseAmount),
			slog.Float64("quote_cost", ev.Opportunity.QuoteCost),
			slog.Float64("quote_revenue", ev.Opportunity.QuoteRevenue),
		)
	case domain.OpportunityTriangular:
		attrs = append(attrs,
			slog.String("venue", ev.Opportunity.Venue),
			slog.String("path", ev.Opportunity.Path),
			slog.Float64("start_amount", ev.Opportunity.StartAmount),
			slog.Float64("final_amount", ev.Opportunity.FinalAmount),
		)
	}
	if ev.Accepted {
		s.logger.InfoContext(ctx, "paper trade filled", attrs...)
	} else {
		attrs = append(attrs, slog.String("reason", ev.Reason))
		s.logger.WarnContext(ctx, "opportunity rejected", attrs...)
	}
	return nil
}
