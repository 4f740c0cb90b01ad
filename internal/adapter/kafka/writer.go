package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/audit"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// FindingWriter publishes audit findings to a Kafka topic.
// It implements audit.Sink.
type FindingWriter struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

var _ audit.Sink = (*FindingWriter)(nil)

// NewFindingWriter creates a Kafka producer for the audit findings topic.
func NewFindingWriter(brokers []string, topic string, clock clockwork.Clock, logger *slog.Logger) *FindingWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &FindingWriter{writer: w, clock: clock, logger: logger}
}

// Publish serializes and publishes findings in a single WriteMessages call.
// Messages are keyed by dataset so one dataset's findings stay ordered
// within a partition.
func (w *FindingWriter) Publish(ctx context.Context, findings []audit.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	publishedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(findings))
	for i := range findings {
		msg, err := serializeToMessage(findings[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d findings: %w", len(msgs), err)
	}
	w.logger.Info("audit findings published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *FindingWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Finding into a Kafka message.
func serializeToMessage(f audit.Finding, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize finding: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.Dataset),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(f.Severity)},
			{Key: "check", Value: []byte(f.Check)},
			{Key: "run_id", Value: []byte(f.RunID)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
