package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// openaiClient speaks the OpenAI chat-completions wire format. The base URL is
// configurable so OpenAI-compatible gateways work unchanged.
type openaiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     []string
}

func newOpenAIClient(httpClient *http.Client, baseURL, apiKey string, models []string) *openaiClient {
	return &openaiClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		models:     models,
	}
}

func (c *openaiClient) Name() string {
	return "openai"
}

func (c *openaiClient) Models() []string {
	return c.models
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts the prompt as a single user turn.
func (c *openaiClient) Generate(ctx context.Context, model string, req Request) (*Result, error) {
	body, err := json.Marshal(openaiRequest{
		Model:       model,
		Messages:    []openaiMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.temperature(),
	})
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: err.Error()}
	}

	var parsed openaiResponse
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

	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Message: "response contained no choices"}
	}

	return &Result{
		Text:         parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}
