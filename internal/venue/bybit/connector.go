// Package bybit streams the Bybit v5 public spot orderbook.50 channel and
// normalizes it into domain snapshots. Bybit concatenates symbols (BTCUSDT),
// pushes a snapshot followed by deltas, and quotes denomination-scaled
// symbols (1000PEPE) for very low-priced assets; all of that is absorbed here
// so the rest of the system sees canonical instruments only.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfold/arbot/internal/domain"
	"github.com/quantfold/arbot/internal/venue"
)

const (
	handshakeTimeout = 15 * time.Second
	writeWait        = 10 * time.Second
	pingPeriod       = 20 * time.Second
	topicPrefix      = "orderbook.50."
)

// Config holds the connector parameters. SymbolOverrides maps a canonical
// instrument string ("PEPE/USDT") to the venue symbol ("1000PEPEUSDT") when
// the default concatenation does not apply.
type Config struct {
	URL             string
	Instruments     []domain.Instrument
	SymbolOverrides map[string]string
}

// symbolInfo resolves a venue symbol back to its canonical instrument and
// the denomination scale embedded in the symbol.
type symbolInfo struct {
	instrument domain.Instrument
	scale      float64
}

// Connector implements venue.Connector for Bybit.
type Connector struct {
	url      string
	topics   []string
	symbols  map[string]symbolInfo
	onUpdate venue.UpdateHandler
	logger   *slog.Logger
}

// New creates a Bybit connector subscribing to the configured instruments.
func New(cfg Config, onUpdate venue.UpdateHandler, logger *slog.Logger) *Connector {
	c := &Connector{
		url:      cfg.URL,
		symbols:  make(map[string]symbolInfo, len(cfg.Instruments)),
		onUpdate: onUpdate,
		logger:   logger.With(slog.String("component", "bybit_connector")),
	}
	for _, inst := range cfg.Instruments {
		symbol := inst.Base + inst.Quote
		if override, ok := cfg.SymbolOverrides[inst.String()]; ok {
			symbol = override
		}
		c.symbols[symbol] = symbolInfo{
			instrument: inst,
			scale:      denominationScale(symbol),
		}
		c.topics = append(c.topics, topicPrefix+symbol)
	}
	return c
}

// denominationScale extracts the 1000^n multiplier Bybit prefixes onto
// low-priced symbols. Prices on such symbols are per scaled unit and sizes
// are in scaled units; snapshots are normalized back to single units.
func denominationScale(symbol string) float64 {
	scale := 1.0
	for strings.HasPrefix(symbol, "1000") {
		scale *= 1000
		symbol = symbol[4:]
	}
	return scale
}

// Name implements venue.Connector.
func (c *Connector) Name() string { return "bybit" }

// RunOnce dials, subscribes, and pumps messages until the connection fails or
// ctx is cancelled. A fresh delta-assembly book is used per connection since
// the venue resends a snapshot after every subscribe.
func (c *Connector) RunOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("bybit: dial %s: %w: %v", c.url, domain.ErrWSDisconnect, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	// Writes come from both the read loop (pong replies) and the ping
	// ticker, so they are serialized.
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	if err := writeJSON(command{Op: "subscribe", Args: c.topics}); err != nil {
		return fmt.Errorf("bybit: subscribe: %w: %v", domain.ErrWSDisconnect, err)
	}
	c.logger.Info("subscribed", slog.Int("topics", len(c.topics)))

	// Bybit drops links that stay silent; ping every 20s.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := writeJSON(command{Op: "ping"}); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	books := make(map[string]*localBook)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bybit: read: %w: %v", domain.ErrWSDisconnect, err)
		}
		c.handleMessage(raw, books, writeJSON)
	}
}

// handleMessage decodes one frame. Malformed frames are logged and swallowed.
func (c *Connector) handleMessage(raw []byte, books map[string]*localBook, writeJSON func(any) error) {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Debug("malformed message dropped", slog.String("error", err.Error()))
		return
	}

	switch {
	case msg.Op == "ping":
		// Server-initiated keep-alive must be answered in-band.
		_ = writeJSON(command{Op: "pong", ReqID: msg.ReqID})
		return
	case msg.Op != "":
		if msg.Success != nil && !*msg.Success {
			c.logger.Warn("op rejected",
				slog.String("op", msg.Op),
				slog.String("ret_msg", msg.RetMsg),
			)
		}
		return
	case !strings.HasPrefix(msg.Topic, topicPrefix) || msg.Data == nil:
		return
	}

	symbol := strings.TrimPrefix(msg.Topic, topicPrefix)
	info, ok := c.symbols[symbol]
	if !ok {
		return
	}

	book, ok := books[symbol]
	if !ok {
		book = newLocalBook()
		books[symbol] = book
	}
	switch msg.Type {
	case "snapshot":
		book.applySnapshot(msg.Data)
	case "delta":
		book.applyDelta(msg.Data)
	default:
		return
	}

	bids, asks := book.levels()
	if info.scale != 1 {
		for i := range bids {
			bids[i].Price /= info.scale
			bids[i].Size *= info.scale
		}
		for i := range asks {
			asks[i].Price /= info.scale
			asks[i].Size *= info.scale
		}
	}
	c.onUpdate(domain.OrderbookSnapshot{
		Venue:      c.Name(),
		Instrument: info.instrument,
		Bids:       bids,
		Asks:       asks,
		ReceivedAt: time.Now(),
	})
}
