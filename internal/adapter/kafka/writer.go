package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/open-observatory/internal/config"
	"github.com/couchcryptid/open-observatory/internal/domain"
)

// Writer publishes observation activity events to a Kafka topic.
// It implements session.ActivityPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured activity topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaActivityTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes activity events in a single WriteMessages call.
// Events of the same record share a key and therefore a partition.
func (w *Writer) Publish(ctx context.Context, events ...domain.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		out, err := domain.SerializeActivity(events[i])
		if err != nil {
			return err
		}
		msgs[i] = toMessage(out)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("activity published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func toMessage(out domain.OutputEvent) kafkago.Message {
	msg := kafkago.Message{Key: out.Key, Value: out.Value}
	for _, k := range []string{"event_type", "event_id", "occurred_at"} {
		if v, ok := out.Headers[k]; ok {
			msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
	}
	return msg
}
