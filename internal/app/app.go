// Package app assembles the configured components and runs them under one
// supervision group: a connector per venue, the detection pipeline, and the
// heartbeat. Cancellation of the root context is the only shutdown path.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/arbot/internal/book"
	"github.com/quantfold/arbot/internal/config"
	"github.com/quantfold/arbot/internal/domain"
	"github.com/quantfold/arbot/internal/ledger"
	"github.com/quantfold/arbot/internal/recorder"
	"github.com/quantfold/arbot/internal/trader"
	"github.com/quantfold/arbot/internal/venue"
	"github.com/quantfold/arbot/internal/venue/bybit"
	"github.com/quantfold/arbot/internal/venue/okx"
)

// App owns the wired component graph for one process run.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	connectors []venue.Connector
	trader     *trader.Orchestrator
	rec        *recorder.Recorder
}

// New wires the application from a validated configuration. ctx is used for
// startup-time connection checks (the Redis sink ping); it does not bound the
// app's lifetime.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	instruments, err := cfg.TradingInstruments()
	if err != nil {
		return nil, err
	}
	sets, err := cfg.TriangularSets()
	if err != nil {
		return nil, err
	}
	if !cfg.Triangular.Enabled {
		sets = nil
	}

	// Connectors must stream every instrument detection needs, including
	// triangular legs that are not in the cross-venue list.
	streamSet := make(map[domain.Instrument]bool, len(instruments))
	streamed := make([]domain.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		streamSet[inst] = true
		streamed = append(streamed, inst)
	}
	for _, set := range sets {
		for _, leg := range set.Legs {
			if !streamSet[leg] {
				streamSet[leg] = true
				streamed = append(streamed, leg)
			}
		}
	}

	cache := book.NewCache(cfg.Arbitrage.DynamicThreshold.VolatilityWindow)
	portfolio := ledger.NewPortfolio(cfg.Balances, ledger.Config{
		Threshold: cfg.Rebalance.Threshold,
		Fraction:  cfg.Rebalance.Fraction,
	}, logger)

	rec, err := buildRecorder(ctx, cfg.Recorder, logger)
	if err != nil {
		return nil, err
	}

	monitor := strings.EqualFold(cfg.Mode, "monitor")
	orch := trader.New(trader.Config{
		Monitor: monitor,
		TakerFees: map[string]float64{
			"okx":   cfg.OKX.TakerFee,
			"bybit": cfg.Bybit.TakerFee,
		},
		TradeSizeQuote:        cfg.Arbitrage.TradeSizeQuote,
		MinProfitThreshold:    cfg.Arbitrage.MinProfitThreshold,
		MaxSkew:               cfg.Arbitrage.MaxSkew.Duration,
		DynamicThreshold:      cfg.Arbitrage.DynamicThreshold.Enabled,
		VolatilityMultiplier:  cfg.Arbitrage.DynamicThreshold.VolatilityMultiplier,
		TriangularSets:        sets,
		TriangularStartAmount: cfg.Triangular.StartAmount,
		HeartbeatInterval:     cfg.HeartbeatInterval.Duration,
	}, cache, portfolio, rec, logger)

	a := &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		trader: orch,
		rec:    rec,
	}

	onUpdate := func(snap domain.OrderbookSnapshot) {
		orch.HandleUpdate(context.Background(), snap)
	}
	a.connectors = []venue.Connector{
		okx.New(okx.Config{
			URL:         cfg.OKX.WsURL,
			Instruments: streamed,
		}, onUpdate, logger),
		bybit.New(bybit.Config{
			URL:             cfg.Bybit.WsURL,
			Instruments:     streamed,
			SymbolOverrides: cfg.Bybit.SymbolOverrides,
		}, onUpdate, logger),
	}

	a.logger.Info("wired",
		slog.String("mode", cfg.Mode),
		slog.Int("instruments", len(streamed)),
		slog.Int("triangular_sets", len(sets)),
	)
	return a, nil
}

// buildRecorder assembles the configured event sinks. The console sink is
// always present; the JSONL and Redis sinks are optional.
func buildRecorder(ctx context.Context, cfg config.RecorderConfig, logger *slog.Logger) (*recorder.Recorder, error) {
	sinks := []recorder.Sink{recorder.NewConsoleSink(logger)}

	if cfg.JSONLPath != "" {
		jsonl, err := recorder.NewJSONLSink(cfg.JSONLPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, jsonl)
	}

	if cfg.Redis.Enabled {
		stream, err := recorder.NewRedisStreamSink(ctx, recorder.RedisStreamConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   int64(cfg.Redis.MaxLen),
		})
		if err != nil {
			return nil, fmt.Errorf("recorder: %w", err)
		}
		// Redis delivery is network I/O and must not run on the connector
		// read goroutines.
		sinks = append(sinks, recorder.NewAsyncSink(stream, 1024, logger))
	}

	return recorder.New(sinks, logger), nil
}

// Run supervises all connectors and the heartbeat until ctx is cancelled or a
// component returns an error other than the cancellation itself.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, c := range a.connectors {
		c := c
		g.Go(func() error {
			return venue.Supervise(ctx, c, a.logger)
		})
	}
	g.Go(func() error {
		return a.trader.RunHeartbeat(ctx)
	})

	err := g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Close releases recorder resources. Call after Run returns.
func (a *App) Close() {
	a.rec.Close()
}
