package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
)

func TestCompleteAgainstFakeServer(t *testing.T) {
	var got api.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:      "llama3.1",
			Message:    api.Message{Role: "assistant", Content: "87"},
			Done:       true,
			DoneReason: "stop",
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "llama3.1", server.Client())
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:    []llm.CompletionMessage{llm.NewUserMessage("score?")},
		MaxTokens:   5,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "87", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "llama3.1", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.EqualValues(t, 5, got.Options["num_predict"])
}

func TestCompleteOmitsUnsetTokenLimit(t *testing.T) {
	var got api.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   "llama3.1",
			Message: api.Message{Role: "assistant", Content: "### Key Benefits"},
			Done:    true,
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "llama3.1", server.Client())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.CompletionRequest{
		Messages:    []llm.CompletionMessage{llm.NewUserMessage("proposal?")},
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.NotContains(t, got.Options, "num_predict")
	assert.Contains(t, got.Options, "temperature")
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("", "llama3.1", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, client.Host())
	assert.Equal(t, "llama3.1", client.GetModelName())

	_, err = NewClient("://bad", "llama3.1", nil)
	require.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	err := classifyError(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"))
	assert.Equal(t, llmerrors.CauseTransient, llmerrors.CauseOf(err))

	err = classifyError(errors.New(`model "nope" not found, try pulling it first`))
	assert.Equal(t, llmerrors.CauseBadPrompt, llmerrors.CauseOf(err))
}

func TestGetStopReason(t *testing.T) {
	assert.Equal(t, "incomplete", getStopReason(&api.ChatResponse{}))
	assert.Equal(t, "max_tokens", getStopReason(&api.ChatResponse{Done: true, DoneReason: "length"}))
}
