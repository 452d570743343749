package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) snapshot() ([]kafka.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...), f.closed
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRecordPublishesWithHeaders(t *testing.T) {
	w := &fakeWriter{}
	rec := newKafkaRecorder(w, KafkaConfig{Topic: DefaultTopic}, discardLogger())
	ctx := httpx.ContextWithRequestID(context.Background(), "req-1")

	if err := rec.Record(ctx, flow.Event{ID: "e1", Type: flow.EventLogout, SessionID: "s1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(runCtx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	msgs, closed := w.snapshot()
	if !closed {
		t.Fatal("writer not closed")
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if string(m.Key) != "s1" {
		t.Fatalf("key = %q", m.Key)
	}
	if kafkax.HeaderValue(m.Headers, kafkax.HeaderEventType) != flow.EventLogout || kafkax.HeaderValue(m.Headers, kafkax.HeaderRequestID) != "req-1" {
		t.Fatalf("unexpected headers %v", m.Headers)
	}
	var e flow.Event
	if err := json.Unmarshal(m.Value, &e); err != nil || e.ID != "e1" {
		t.Fatalf("payload: %v %+v", err, e)
	}
}

func TestRecordReportsFullBuffer(t *testing.T) {
	rec := newKafkaRecorder(&fakeWriter{}, KafkaConfig{BufferSize: 1}, discardLogger())
	ctx := context.Background()
	if err := rec.Record(ctx, flow.Event{ID: "e1"}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := rec.Record(ctx, flow.Event{ID: "e2"}); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}
