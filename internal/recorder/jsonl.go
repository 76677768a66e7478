package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/quantfold/arbot/internal/domain"
)

// JSONLSink appends one JSON record per line to a file, the paper-trade log
// external analysis tooling tails.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink opens (or creates) the file at path in append mode.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open jsonl %s: %w", path, err)
	}
	return &JSONLSink{file: f}, nil
}

// Name implements Sink.
func (s *JSONLSink) Name() string { return "jsonl" }

// Record implements Sink.
func (s *JSONLSink) Record(_ context.Context, ev domain.OpportunityEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("recorder: marshal event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("recorder: write jsonl: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
