package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursegen-worker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient records calls so budget tests can prove no network attempt
// was made.
type countingClient struct {
	calls  int
	result *Result
	err    error
}

func (c *countingClient) Name() string     { return "counting" }
func (c *countingClient) Models() []string { return []string{"m1"} }

func (c *countingClient) Generate(ctx context.Context, model string, req Request) (*Result, error) {
	c.calls++
	return c.result, c.err
}

func TestBudgetRejectsBeforeNetworkCall(t *testing.T) {
	client := &countingClient{result: &Result{Text: "ok"}}
	gw := NewWithClient(client, Budget{PerCallCeiling: 256})

	_, err := gw.GenerateText(context.Background(), Request{
		Prompt:    "hello",
		MaxTokens: 257, // one over the ceiling
	})

	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, 257, budgetErr.Requested)
	assert.Equal(t, 256, budgetErr.Ceiling)
	assert.Equal(t, 0, client.calls)
}

func TestBudgetRejectsOversizedPrompt(t *testing.T) {
	client := &countingClient{result: &Result{Text: "ok"}}
	gw := NewWithClient(client, Budget{PerCallCeiling: 10})

	// 2x ceiling is 20 estimated tokens; ~4 chars per token.
	prompt := make([]byte, 200)
	for i := range prompt {
		prompt[i] = 'a'
	}

	_, err := gw.GenerateText(context.Background(), Request{Prompt: string(prompt), MaxTokens: 8})

	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.True(t, budgetErr.Estimated)
	assert.Equal(t, 0, client.calls)
}

func TestGenerateTextAppliesDefaults(t *testing.T) {
	var captured Request
	client := &capturingClient{result: &Result{Text: "ok"}, captured: &captured}
	gw := NewWithClient(client, Budget{PerCallCeiling: 2048})

	_, err := gw.GenerateText(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, DefaultTemperature, *captured.Temperature)
}

func TestGenerateTextHonorsExplicitZeroTemperature(t *testing.T) {
	// Temperature zero means deterministic sampling, not "use the default".
	var captured Request
	client := &capturingClient{result: &Result{Text: "ok"}, captured: &captured}
	gw := NewWithClient(client, Budget{PerCallCeiling: 2048})

	_, err := gw.GenerateText(context.Background(), Request{Prompt: "hi", Temperature: Float64(0)})
	require.NoError(t, err)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, 0.0, *captured.Temperature)
}

type capturingClient struct {
	result   *Result
	captured *Request
}

func (c *capturingClient) Name() string     { return "capturing" }
func (c *capturingClient) Models() []string { return []string{"m1"} }

func (c *capturingClient) Generate(ctx context.Context, model string, req Request) (*Result, error) {
	*c.captured = req
	return c.result, nil
}

func TestFailoverSecondModelSucceeds(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		var body openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		// First configured model is broken, second answers.
		if body.Model == "broken-model" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"recovered text"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := newOpenAIClient(server.Client(), server.URL, "test-key", []string{"broken-model", "good-model"})
	gw := NewWithClient(client, Budget{PerCallCeiling: 2048})

	result, err := gw.GenerateText(context.Background(), Request{Prompt: "explain fractions"})
	require.NoError(t, err)
	assert.Equal(t, "recovered text", result.Text)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 2, requests)
}

func TestFailoverAllModelsExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer server.Close()

	client := newOpenAIClient(server.Client(), server.URL, "test-key", []string{"m1", "m2"})
	gw := NewWithClient(client, Budget{PerCallCeiling: 2048})

	_, err := gw.GenerateText(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllModelsFailed))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusServiceUnavailable, provErr.Status)
	assert.Equal(t, "overloaded", provErr.Message)
}

func TestAnthropicClientParsesTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := newAnthropicClient(server.Client(), server.URL, "key-123", []string{"claude-test"})
	result, err := client.Generate(context.Background(), "claude-test", Request{Prompt: "hi", MaxTokens: 64, Temperature: Float64(0.2)})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", result.Text)
	assert.Equal(t, "end_turn", result.FinishReason)
}

func TestNewSelectsProvider(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		_, err := New(&config.ProviderConfig{RequestTimeout: time.Second})
		assert.ErrorIs(t, err, ErrNoProvider)
	})

	t.Run("preferred without credentials", func(t *testing.T) {
		_, err := New(&config.ProviderConfig{Preferred: "openai", RequestTimeout: time.Second})
		assert.ErrorIs(t, err, ErrNoProvider)
	})

	t.Run("first with credentials", func(t *testing.T) {
		gw, err := New(&config.ProviderConfig{
			AnthropicKey:     "key",
			AnthropicBaseURL: "https://example.test",
			AnthropicModels:  []string{"claude-test"},
			RequestTimeout:   time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, gw)
	})

	t.Run("test mode", func(t *testing.T) {
		gw, err := New(&config.ProviderConfig{Preferred: "test", RequestTimeout: time.Second})
		require.NoError(t, err)

		result, err := gw.GenerateText(context.Background(), Request{Prompt: "echo me", MaxTokens: 64})
		require.NoError(t, err)
		assert.Equal(t, "echo me", result.Text)
	})
}

func TestTestClientTruncates(t *testing.T) {
	client := newTestClient()

	result, err := client.Generate(context.Background(), "echo-1", Request{Prompt: "abcdefghij", MaxTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, "abcd", result.Text)
}
