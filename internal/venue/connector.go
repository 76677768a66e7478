// Package venue defines the streaming connector contract and the supervisory
// loop that keeps one connection per venue alive for the process lifetime.
// Venue-specific wire handling lives in the subpackages; everything past the
// UpdateHandler boundary sees only normalized snapshots and canonical
// instrument symbols.
package venue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quantfold/arbot/internal/domain"
)

const (
	// reconnectDelay is the fixed backoff after a connection drop.
	reconnectDelay = 5 * time.Second
	// errorDelay is the longer backoff after an unexpected failure.
	errorDelay = 10 * time.Second
)

// UpdateHandler receives every normalized orderbook snapshot. It runs on the
// connector's read goroutine and must not block on network I/O.
type UpdateHandler func(snap domain.OrderbookSnapshot)

// Connector is one streaming session factory for a venue. RunOnce dials,
// subscribes the full instrument set, and pumps messages until the connection
// drops or ctx is cancelled; the supervisor handles retry.
type Connector interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Supervise runs the connector until ctx is cancelled. The loop has no
// terminal state short of shutdown: connection drops are retried after
// reconnectDelay, anything else after errorDelay. Each cycle resubscribes
// from scratch, so no subscription state survives a reconnect.
func Supervise(ctx context.Context, c Connector, logger *slog.Logger) error {
	logger = logger.With(slog.String("venue", c.Name()))
	for {
		err := c.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := errorDelay
		if errors.Is(err, domain.ErrWSDisconnect) {
			delay = reconnectDelay
		}
		logger.Warn("stream lost, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
