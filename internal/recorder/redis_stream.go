package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/arbot/internal/domain"
)

// RedisStreamConfig holds connection and stream parameters for the Redis sink.
type RedisStreamConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream length (approximate trimming via XADD MAXLEN ~).
	MaxLen int64
}

// RedisStreamSink appends events to a Redis stream so external recorders and
// dashboards can consume them without coupling to the process.
type RedisStreamSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink connects to Redis and verifies the connection with a
// ping before returning the sink.
func NewRedisStreamSink(ctx context.Context, cfg RedisStreamConfig) (*RedisStreamSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("recorder: redis ping %s: %w", cfg.Addr, err)
	}

	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamSink{rdb: rdb, stream: cfg.Stream, maxLen: maxLen}, nil
}

// Name implements Sink.
func (s *RedisStreamSink) Name() string { return "redis_stream" }

// Record implements Sink.
func (s *RedisStreamSink) Record(ctx context.Context, ev domain.OpportunityEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("recorder: marshal event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("recorder: stream append %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStreamSink) Close() error { return s.rdb.Close() }
