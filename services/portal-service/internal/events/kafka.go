package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"github.com/md-rashed-zaman/careportal/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "portal.auth.v1"

// ErrBufferFull is returned when events arrive faster than Kafka accepts them.
var ErrBufferFull = errors.New("event buffer full")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder queues flow events and publishes them from Run, so a slow
// broker never holds up a login.
type KafkaRecorder struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	queue  chan kafka.Message
}

type KafkaConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int
}

func NewKafkaRecorder(cfg KafkaConfig, logger *slog.Logger) *KafkaRecorder {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	})
	return newKafkaRecorder(writer, cfg, logger)
}

func newKafkaRecorder(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaRecorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &KafkaRecorder{
		writer: w,
		topic:  cfg.Topic,
		logger: logger.With("component", "events"),
		queue:  make(chan kafka.Message, cfg.BufferSize),
	}
}

var _ flow.Recorder = (*KafkaRecorder)(nil)

// Record builds the message while the request context (trace, request id)
// is still available and queues it.
func (k *KafkaRecorder) Record(ctx context.Context, e flow.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(e.SessionID),
		Value:   payload,
		Headers: kafkax.MetaHeaders(e.ID, e.Type, httpx.RequestIDFromContext(ctx)),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	select {
	case k.queue <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run publishes queued events until ctx ends, then flushes what is left
// and closes the writer.
func (k *KafkaRecorder) Run(ctx context.Context) {
	defer func() {
		if err := k.writer.Close(); err != nil {
			k.logger.Warn("kafka writer close failed", "err", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			k.drain()
			return
		case msg := <-k.queue:
			k.publish(ctx, msg)
		}
	}
}

func (k *KafkaRecorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-k.queue:
			k.publish(ctx, msg)
		default:
			return
		}
	}
}

func (k *KafkaRecorder) publish(ctx context.Context, msg kafka.Message) {
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.logger.Error("flow event publish failed",
			"topic", k.topic,
			"event_type", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType),
			"err", err,
		)
	}
}
