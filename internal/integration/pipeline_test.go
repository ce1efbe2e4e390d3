//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/filestore"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/waqi"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testAlertTopic = "test-aqi-alerts"

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fakeWAQI serves a bounds directory and per-station feeds in the
// provider's envelope format.
func fakeWAQI(t *testing.T) *httptest.Server {
	t.Helper()
	feeds := map[string]string{
		"5773": `{"aqi": 162, "time": {"s": "2024-03-21 13:00:00"}, "iaqi": {"pm25": {"v": 162}, "pm10": {"v": 88}, "t": {"v": 33}, "h": {"v": 60}}}`,
		"8642": `{"aqi": "-", "time": {"s": "2024-03-21 13:00:00"}, "iaqi": {}}`,
		"1822": `{"aqi": 74, "time": {"s": "2024-03-21 13:00:00"}, "iaqi": {"pm25": {"v": 74}}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/map/bounds", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "ok", "data": [
			{"uid": 5773, "lat": 13.76, "lon": 100.55, "aqi": "162", "station": {"name": "Bangkok Din Daeng, Thailand"}},
			{"uid": 8642, "lat": 13.67, "lon": 100.60, "aqi": "-", "station": {"name": "Bangkok Bang Na, Thailand"}},
			{"uid": 1822, "lat": 13.72, "lon": 100.53, "aqi": "74", "station": {"name": "Bangkok Sathorn, Thailand"}},
			{"uid": 9999, "lat": 18.79, "lon": 98.98, "aqi": "40", "station": {"name": "Chiang Mai, North"}}
		]}`)
	})
	mux.HandleFunc("GET /feed/{station}/", func(w http.ResponseWriter, r *http.Request) {
		data, ok := feeds[strings.TrimPrefix(r.PathValue("station"), "@")]
		if !ok {
			fmt.Fprint(w, `{"status": "error", "data": "Unknown station"}`)
			return
		}
		fmt.Fprintf(w, `{"status": "ok", "data": %s}`, data)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestPipelinePublishesAlerts runs one full pass against a fake provider
// and checks both the artifacts and the alerts published to Kafka.
func TestPipelinePublishesAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	provider := waqi.NewClient(waqi.Options{
		Token:     "test-token",
		BaseURL:   fakeWAQI(t).URL,
		Timeout:   5 * time.Second,
		RateLimit: 50,
	}, metrics, logger)

	writer := kafka.NewWriter(&config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
	}, logger)
	t.Cleanup(func() { _ = writer.Close() })

	store := filestore.New(t.TempDir(), "bangkok")
	synth := pipeline.NewSynthesizer(nil, pipeline.SynthesizerOptions{
		Scope:               "Bangkok",
		AlertThreshold:      50,
		EnrichmentThreshold: 50,
	}, logger, metrics)
	p := pipeline.New(provider, synth, store, []pipeline.Sink{writer}, pipeline.Options{
		Bounds:     domain.BoundingBox{South: 13.5, West: 100.3, North: 14.0, East: 100.9},
		Scope:      domain.Scope{Label: "Bangkok", Type: "city"},
		CityMarker: "Bangkok",
	}, logger, metrics)

	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stations)
	assert.Equal(t, 3, res.Readings)
	assert.Equal(t, 2, res.Alerts)

	batch, _, err := store.LatestReadings()
	require.NoError(t, err)
	require.Len(t, batch.Data, 3)
	assert.Nil(t, batch.Data[2].AQI)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testAlertTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var got []domain.Alert
	keys := make([]string, 0, 2)
	for range 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read alert message")

		var alert domain.Alert
		require.NoError(t, json.Unmarshal(msg.Value, &alert))
		got = append(got, alert)
		keys = append(keys, string(msg.Key))

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, alert.AQILevel.String(), headers["aqi_level"])
		assert.Equal(t, alert.AlertType, headers["alert_type"])
		assert.NotEmpty(t, headers["generated_at"])
	}

	assert.Equal(t, []string{"5773", "1822"}, keys)
	assert.Equal(t, domain.CategoryUnhealthy, got[0].AQILevel)
	assert.Equal(t, domain.CategoryModerate, got[1].AQILevel)
	assert.Equal(t, "Din Daeng", got[0].City)
}
