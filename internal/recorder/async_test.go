package recorder

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/arbot/internal/domain"
)

// gatedSink blocks every delivery until release is closed.
type gatedSink struct {
	mu      sync.Mutex
	got     []domain.OpportunityEvent
	started chan struct{}
	release chan struct{}
	closed  bool
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *gatedSink) Name() string { return "gated" }

func (s *gatedSink) Record(ctx context.Context, ev domain.OpportunityEvent) error {
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return nil
}

func (s *gatedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *gatedSink) delivered() []domain.OpportunityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OpportunityEvent(nil), s.got...)
}

func event(id string) domain.OpportunityEvent {
	return domain.OpportunityEvent{
		Opportunity: domain.Opportunity{ID: id, Kind: domain.OpportunityCrossVenue},
		Accepted:    true,
	}
}

func TestAsyncSinkRecordNeverBlocksOnSlowDelivery(t *testing.T) {
	inner := newGatedSink()
	s := NewAsyncSink(inner, 8, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Occupy the worker with a delivery that will not finish.
	require.NoError(t, s.Record(context.Background(), event("a")))
	<-inner.started

	// Further Records must return immediately even though the worker is
	// stuck inside the inner sink.
	start := time.Now()
	require.NoError(t, s.Record(context.Background(), event("b")))
	require.NoError(t, s.Record(context.Background(), event("c")))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(inner.release)
	require.NoError(t, s.Close())
	assert.Len(t, inner.delivered(), 3)
}

func TestAsyncSinkFullQueueDropsInsteadOfBlocking(t *testing.T) {
	inner := newGatedSink()
	s := NewAsyncSink(inner, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// First event occupies the worker, second fills the one-slot queue.
	require.NoError(t, s.Record(context.Background(), event("a")))
	<-inner.started
	require.NoError(t, s.Record(context.Background(), event("b")))

	err := s.Record(context.Background(), event("c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")

	close(inner.release)
	require.NoError(t, s.Close())
	assert.Len(t, inner.delivered(), 2)
}

func TestAsyncSinkCloseDrainsAndClosesInner(t *testing.T) {
	inner := newGatedSink()
	close(inner.release)
	s := NewAsyncSink(inner, 8, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, s.Record(context.Background(), event("a")))
	require.NoError(t, s.Record(context.Background(), event("b")))
	require.NoError(t, s.Close())

	got := inner.delivered()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Opportunity.ID)
	assert.Equal(t, "b", got[1].Opportunity.ID)
	assert.True(t, inner.closed)
}

func TestAsyncSinkKeepsInnerName(t *testing.T) {
	inner := newGatedSink()
	close(inner.release)
	s := NewAsyncSink(inner, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "gated", s.Name())
	require.NoError(t, s.Close())
}
