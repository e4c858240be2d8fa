package provider

import (
	"context"
)

// testClient is the deterministic test-mode provider: it echoes a truncated
// prompt without any network traffic, which keeps pipeline tests hermetic.
type testClient struct {
	models []string
}

func newTestClient() *testClient {
	return &testClient{models: []string{"echo-1"}}
}

func (c *testClient) Name() string {
	return "test"
}

func (c *testClient) Models() []string {
	return c.models
}

func (c *testClient) Generate(ctx context.Context, model string, req Request) (*Result, error) {
	text := req.Prompt
	// Roughly 4 characters per token.
	limit := req.MaxTokens * 4
	if limit > 0 && len(text) > limit {
		text = text[:limit]
	}

	return &Result{Text: text, FinishReason: "stop"}, nil
}
