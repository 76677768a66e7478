// Package recorder fans opportunity and fill events out to one or more sinks
// (console, JSONL file, Redis stream). The core trading path emits exactly
// one structured record per accepted or rejected opportunity; sinks decide
// where the record goes. A failing sink never disturbs the others or the
// detection path.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantfold/arbot/internal/domain"
)

// Sink is one destination for opportunity events.
type Sink interface {
	// Record delivers a single event.
	Record(ctx context.Context, ev domain.OpportunityEvent) error
	// Name returns a human-readable identifier for the sink (e.g. "jsonl").
	Name() string
}

// Recorder dispatches events to all registered sinks.
type Recorder struct {
	sinks  []Sink
	logger *slog.Logger
}

// New creates a Recorder delivering to the given sinks.
func New(sinks []Sink, logger *slog.Logger) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "recorder")),
	}
}

// Record delivers the event to every sink. Errors from individual sinks are
// collected and returned combined; one sink failing does not prevent delivery
// to the remaining sinks.
func (r *Recorder) Record(ctx context.Context, ev domain.OpportunityEvent) error {
	var errs []string
	for _, s := range r.sinks {
		if err := s.Record(ctx, ev); err != nil {
			r.logger.WarnContext(ctx, "sink failed",
				slog.String("sink", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("recorder: %d sink(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Close releases sink resources in registration order.
func (r *Recorder) Close() {
	for _, s := range r.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}
