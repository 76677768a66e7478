package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfold/arbot/internal/domain"
)

// deliverTimeout bounds one delivery attempt by the worker.
const deliverTimeout = 5 * time.Second

// AsyncSink decouples a sink that performs network I/O from the goroutine
// emitting the event. Record enqueues and returns immediately; a single
// worker goroutine drains the queue and delivers with a per-attempt timeout.
// A full queue drops the event rather than blocking the caller: the
// detection path must never stall on a slow sink.
type AsyncSink struct {
	inner  Sink
	queue  chan domain.OpportunityEvent
	stop   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

// NewAsyncSink wraps inner with a delivery queue of the given size and starts
// the worker. buffer <= 0 selects a default of 256.
func NewAsyncSink(inner Sink, buffer int, logger *slog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		inner:  inner,
		queue:  make(chan domain.OpportunityEvent, buffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "recorder"), slog.String("sink", inner.Name())),
	}
	go s.run()
	return s
}

// Name implements Sink.
func (s *AsyncSink) Name() string { return s.inner.Name() }

// Record implements Sink. It never blocks; a full queue drops the event and
// returns an error for the recorder to report.
func (s *AsyncSink) Record(_ context.Context, ev domain.OpportunityEvent) error {
	select {
	case s.queue <- ev:
		return nil
	default:
		return fmt.Errorf("recorder: %s queue full, event dropped", s.inner.Name())
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			// Drain whatever is already queued, then exit.
			for {
				select {
				case ev := <-s.queue:
					s.deliver(ev)
				default:
					return
				}
			}
		case ev := <-s.queue:
			s.deliver(ev)
		}
	}
}

func (s *AsyncSink) deliver(ev domain.OpportunityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := s.inner.Record(ctx, ev); err != nil {
		s.logger.Warn("async delivery failed", slog.String("error", err.Error()))
	}
}

// Close stops the worker after draining the queue and closes the inner sink
// if it holds resources.
func (s *AsyncSink) Close() error {
	close(s.stop)
	<-s.done
	if c, ok := s.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
