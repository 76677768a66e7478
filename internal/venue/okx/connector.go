// Package okx streams the OKX public books5 orderbook channel and normalizes
// it into domain snapshots. OKX formats instruments with a dash (BTC-USDT)
// and sends a bare "ping" text frame as its keep-alive.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfold/arbot/internal/domain"
	"github.com/quantfold/arbot/internal/venue"
)

const (
	handshakeTimeout = 15 * time.Second
	writeWait        = 10 * time.Second
	booksChannel     = "books5"
)

// Config holds the connector parameters.
type Config struct {
	URL         string
	Instruments []domain.Instrument
}

// Connector implements venue.Connector for OKX.
type Connector struct {
	url      string
	args     []streamArg
	symbols  map[string]domain.Instrument // instId -> canonical instrument
	onUpdate venue.UpdateHandler
	logger   *slog.Logger
}

// New creates an OKX connector subscribing to the configured instruments.
func New(cfg Config, onUpdate venue.UpdateHandler, logger *slog.Logger) *Connector {
	c := &Connector{
		url:      cfg.URL,
		symbols:  make(map[string]domain.Instrument, len(cfg.Instruments)),
		onUpdate: onUpdate,
		logger:   logger.With(slog.String("component", "okx_connector")),
	}
	for _, inst := range cfg.Instruments {
		instID := inst.Base + "-" + inst.Quote
		c.symbols[instID] = inst
		c.args = append(c.args, streamArg{Channel: booksChannel, InstID: instID})
	}
	return c
}

// Name implements venue.Connector.
func (c *Connector) Name() string { return "okx" }

// RunOnce dials, subscribes the full instrument set, and pumps messages until
// the connection fails or ctx is cancelled. Connection-level failures are
// wrapped in domain.ErrWSDisconnect so the supervisor picks the short backoff.
func (c *Connector) RunOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("okx: dial %s: %w: %v", c.url, domain.ErrWSDisconnect, err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	sub := subscribeRequest{Op: "subscribe", Args: c.args}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("okx: subscribe: %w: %v", domain.ErrWSDisconnect, err)
	}
	c.logger.Info("subscribed", slog.Int("instruments", len(c.args)))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("okx: read: %w: %v", domain.ErrWSDisconnect, err)
		}

		// OKX keep-alive is a bare text frame.
		if string(raw) == "ping" {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
				return fmt.Errorf("okx: pong: %w: %v", domain.ErrWSDisconnect, err)
			}
			continue
		}

		c.handleMessage(raw)
	}
}

// handleMessage decodes one data push. Malformed messages are logged and
// swallowed; a single bad message must never take the stream down.
func (c *Connector) handleMessage(raw []byte) {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Debug("malformed message dropped", slog.String("error", err.Error()))
		return
	}

	switch {
	case msg.Event == "error":
		c.logger.Warn("venue error event",
			slog.String("code", msg.Code),
			slog.String("msg", msg.Msg),
		)
		return
	case msg.Event != "":
		// Subscription acks and other event frames carry no book data.
		return
	case msg.Arg == nil || msg.Arg.Channel != booksChannel:
		return
	}

	inst, ok := c.symbols[msg.Arg.InstID]
	if !ok {
		return
	}

	now := time.Now()
	for _, push := range msg.Data {
		snap := domain.OrderbookSnapshot{
			Venue:      c.Name(),
			Instrument: inst,
			Bids:       venue.ParseLevels(push.Bids, true),
			Asks:       venue.ParseLevels(push.Asks, false),
			ReceivedAt: now,
		}
		c.onUpdate(snap)
	}
}
