package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/config"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes the region table to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message per region, keyed by region code, in a single
// WriteMessages call.
func (w *Writer) Publish(ctx context.Context, table *domain.Table) error {
	if table.Len() == 0 {
		return nil
	}
	regions := table.Regions()
	msgs := make([]kafkago.Message, 0, len(regions))
	for _, code := range table.Codes() {
		msg, err := serializeToMessage(regions[code], table.BuiltAt())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot messages: %w", err)
	}
	w.logger.Info("table published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionTimeSeries into a Kafka message.
func serializeToMessage(region domain.RegionTimeSeries, builtAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(region)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region %s: %w", region.RegionCode, err)
	}
	return kafkago.Message{
		Key:   []byte(region.RegionCode),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "trend", Value: []byte(region.Trend)},
			{Key: "built_at", Value: []byte(builtAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
