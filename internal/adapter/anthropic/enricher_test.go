package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "claude-sonnet-4-5-20250929"

func messageResponse(stopReason string, texts ...string) map[string]any {
	content := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		content = append(content, map[string]any{"type": "text", "text": t})
	}
	return map[string]any{
		"id":          "msg_test_001",
		"type":        "message",
		"role":        "assistant",
		"content":     content,
		"model":       testModel,
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	}
}

func newTestEnricher(baseURL string) *Enricher {
	return NewEnricher(Options{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     testModel,
		MaxTokens: 1024,
		Timeout:   5 * time.Second,
	})
}

func TestEnricher_Enrich(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, testModel, req["model"])
		assert.Equal(t, 1024.0, req["max_tokens"])
		assert.Equal(t, 0.3, req["temperature"])
		assert.Contains(t, string(body), "You are an assistant")
		assert.Contains(t, string(body), "station data")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse("end_turn", `{"alerts":`, `[]}`)) //nolint:errcheck
	}))
	defer ts.Close()

	text, err := newTestEnricher(ts.URL).Enrich(context.Background(), "You are an assistant", "station data")
	require.NoError(t, err)
	assert.Equal(t, `{"alerts":[]}`, text)
}

func TestEnricher_Enrich_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestEnricher(ts.URL).Enrich(context.Background(), "sys", "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestEnricher_Enrich_EmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse("end_turn")) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestEnricher(ts.URL).Enrich(context.Background(), "sys", "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestEnricher_Enrich_Truncated(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse("max_tokens", `{"alerts":[`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestEnricher(ts.URL).Enrich(context.Background(), "sys", "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestEnricher_Enrich_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) //nolint:errcheck
		<-r.Context().Done()
	}))
	defer ts.Close()

	e := newTestEnricher(ts.URL)
	e.timeout = 50 * time.Millisecond

	_, err := e.Enrich(context.Background(), "sys", "input")
	require.Error(t, err)
}
