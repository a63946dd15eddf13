package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

// JSONLinesSink writes one JSON document per line and flushes after every
// record so downstream readers see progress immediately.
type JSONLinesSink struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONLinesSink{buf: buf, enc: enc}
}

func (s *JSONLinesSink) Emit(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// MultiSink forwards every record to all sinks in order and stops at the
// first failure.
type MultiSink []ports.RecordSink

func (m MultiSink) Emit(ctx context.Context, record domain.ResultRecord) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
