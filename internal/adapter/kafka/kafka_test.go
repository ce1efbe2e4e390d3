package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func ptr(v float64) *float64 { return &v }

var testStamp = domain.RunStamp{QueryTime: time.Date(2024, 3, 21, 13, 42, 7, 0, time.UTC)}

func testOutput() domain.RunOutput {
	alerts := domain.FallbackAlerts([]domain.Reading{
		{StationName: "Din Daeng", StationID: "5773", AQI: ptr(250)},
		{StationName: "Bang Na", StationID: "8642", AQI: ptr(120)},
	})
	return domain.RunOutput{
		Stamp:  testStamp,
		Alerts: domain.NewAlertBatch(testStamp, domain.Scope{Label: "Bangkok", Type: "city"}, domain.StrategyFallback, alerts),
	}
}

func newTestWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSerializeToMessage(t *testing.T) {
	alert := domain.FallbackAlert(domain.Reading{StationName: "Din Daeng", StationID: "5773", AQI: ptr(250)})

	msg, err := serializeToMessage(alert, testStamp)
	require.NoError(t, err)

	assert.Equal(t, []byte("5773"), msg.Key)
	assert.Contains(t, string(msg.Value), `"aqi_level":"Very Unhealthy"`)
	assert.Contains(t, string(msg.Value), `"station_id":"5773"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "aqi_level", msg.Headers[0].Key)
	assert.Equal(t, []byte("Very Unhealthy"), msg.Headers[0].Value)
	assert.Equal(t, "alert_type", msg.Headers[1].Key)
	assert.Equal(t, []byte("Air Quality Danger"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-03-21T13:42:07Z"), msg.Headers[2].Value)
}

func TestWriter_Store(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	require.NoError(t, w.Store(context.Background(), testOutput()))

	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("5773"), fw.msgs[0].Key)
	assert.Equal(t, []byte("8642"), fw.msgs[1].Key)
	assert.Equal(t, "kafka", w.Name())

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_Store_NoAlerts(t *testing.T) {
	fw := &fakeWriter{err: errors.New("must not be called")}
	w := newTestWriter(fw)

	require.NoError(t, w.Store(context.Background(), domain.RunOutput{Stamp: testStamp}))
	assert.Empty(t, fw.msgs)
}

func TestWriter_Store_Error(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	w := newTestWriter(fw)

	err := w.Store(context.Background(), testOutput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
