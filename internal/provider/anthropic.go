package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const anthropicVersion = "2023-06-01"

type anthropicClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     []string
}

func newAnthropicClient(httpClient *http.Client, baseURL, apiKey string, models []string) *anthropicClient {
	return &anthropicClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		models:     models,
	}
}

func (c *anthropicClient) Name() string {
	return "anthropic"
}

func (c *anthropicClient) Models() []string {
	return c.models
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts the prompt as a single user turn against the messages API.
func (c *anthropicClient) Generate(ctx context.Context, model string, req Request) (*Result, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.temperature(),
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: err.Error()}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: message}
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: "response contained no text blocks"}
	}

	return &Result{Text: text, FinishReason: parsed.StopReason}, nil
}
