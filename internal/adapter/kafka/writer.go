package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes each alert of a run to the alert topic.
// It implements pipeline.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Store publishes all alerts of the run in a single WriteMessages call.
// Keys are station ids so alerts for one station stay on one partition.
func (w *Writer) Store(ctx context.Context, out domain.RunOutput) error {
	if len(out.Alerts.Alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(out.Alerts.Alerts))
	for i := range out.Alerts.Alerts {
		msg, err := serializeToMessage(out.Alerts.Alerts[i], out.Stamp)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}
	w.logger.Debug("alerts published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Alert into a Kafka message.
func serializeToMessage(alert domain.Alert, stamp domain.RunStamp) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "aqi_level", Value: []byte(alert.AQILevel.String())},
			{Key: "alert_type", Value: []byte(alert.AlertType)},
			{Key: "generated_at", Value: []byte(stamp.QueryTime.Format(time.RFC3339))},
		},
	}, nil
}
