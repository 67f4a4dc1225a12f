package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := types.DefaultConfig()
	config.ModelAPIKey = "test-key"
	config.ModelBaseURL = server.URL
	config.ModelRPS = 0

	client, err := NewAnthropicClient(config, logrus.New(), monitoring.NewMetrics())
	require.NoError(t, err)
	return client
}

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got messageRequest
	var headers http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondJSON(w, http.StatusOK, `{"content": [{"type": "text", "text": "{\"score\": 7}"}]}`)
	})

	text, err := client.Complete(context.Background(),
		[]Image{{MediaType: "image/png", Data: []byte("first")}, {MediaType: "image/jpeg", Data: []byte("second")}},
		"rate this", 500)

	require.NoError(t, err)
	assert.Equal(t, `{"score": 7}`, text)

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))

	assert.Equal(t, types.DefaultConfig().VisionModel, got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)

	blocks := got.Messages[0].Content
	require.Len(t, blocks, 3)
	assert.Equal(t, "image", blocks[0].Type)
	assert.Equal(t, "image/png", blocks[0].Source.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("first")), blocks[0].Source.Data)
	assert.Equal(t, "image/jpeg", blocks[1].Source.MediaType)
	assert.Equal(t, "text", blocks[2].Type)
	assert.Equal(t, "rate this", blocks[2].Text)
}

func TestAnthropicClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusTooManyRequests, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	})

	_, err := client.Complete(context.Background(), nil, "hi", 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestAnthropicClient_NoTextBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"content": [{"type": "tool_use"}]}`)
	})

	_, err := client.Complete(context.Background(), nil, "hi", 10)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"content": []}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, nil, "hi", 10)
	assert.Error(t, err)
}

func TestNewAnthropicClient_MissingKey(t *testing.T) {
	_, err := NewAnthropicClient(types.DefaultConfig(), logrus.New(), nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
