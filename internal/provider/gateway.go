// Package provider exposes a uniform generate-text contract over multiple LLM
// backends, with token-budget enforcement and in-order model failover. The
// gateway is a constructed value injected into its callers; there is no
// process-global provider state.
package provider

import (
	"context"
	"log"
	"net/http"

	"coursegen-worker/internal/config"
)

const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
)

// Request is one generate-text call. A nil Temperature selects the default;
// an explicit zero asks for deterministic sampling and is passed through.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Float64 returns a pointer to v, for filling optional request fields.
func Float64(v float64) *float64 {
	return &v
}

// temperature resolves the request's sampling temperature.
func (r Request) temperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// Result is the uniform response shape across providers.
type Result struct {
	Text         string
	FinishReason string
}

// Gateway is the uniform contract over the configured provider.
type Gateway interface {
	GenerateText(ctx context.Context, req Request) (*Result, error)
}

// Client is one concrete backend able to run a single prompt against a single
// model.
type Client interface {
	Name() string
	Models() []string
	Generate(ctx context.Context, model string, req Request) (*Result, error)
}

// gateway wraps one client with budget enforcement and model failover.
type gateway struct {
	client Client
	budget Budget
}

// New builds a gateway from configuration. Selection is static per process:
// the explicitly preferred provider wins, else the first provider with
// credentials; ErrNoProvider when nothing is configured. "test" yields the
// deterministic echo provider used to keep pipeline tests hermetic.
func New(cfg *config.ProviderConfig) (Gateway, error) {
	budget := Budget{PerCallCeiling: cfg.TokenCeiling}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	var selected Client
	switch cfg.Preferred {
	case "test":
		selected = newTestClient()
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, ErrNoProvider
		}
		selected = newOpenAIClient(httpClient, cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModels)
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, ErrNoProvider
		}
		selected = newAnthropicClient(httpClient, cfg.AnthropicBaseURL, cfg.AnthropicKey, cfg.AnthropicModels)
	case "":
		// First provider with credentials configured.
		switch {
		case cfg.OpenAIKey != "":
			selected = newOpenAIClient(httpClient, cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModels)
		case cfg.AnthropicKey != "":
			selected = newAnthropicClient(httpClient, cfg.AnthropicBaseURL, cfg.AnthropicKey, cfg.AnthropicModels)
		default:
			return nil, ErrNoProvider
		}
	default:
		return nil, ErrNoProvider
	}

	return &gateway{client: selected, budget: budget}, nil
}

// NewWithClient wires a gateway around an explicit client, for tests.
func NewWithClient(c Client, budget Budget) Gateway {
	return &gateway{client: c, budget: budget}
}

// GenerateText enforces the budget, then iterates the provider's candidate
// models in order. A success from any candidate short-circuits the loop; a
// non-success response or timeout records the failure and moves on. Only after
// every candidate has failed does the caller see an error.
func (g *gateway) GenerateText(ctx context.Context, req Request) (*Result, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if req.Temperature == nil {
		req.Temperature = Float64(DefaultTemperature)
	}

	if err := g.budget.Enforce(BudgetRequest{
		EstimatedTokens: EstimateTokens(req.Prompt),
		MaxTokens:       req.MaxTokens,
	}); err != nil {
		return nil, err
	}

	models := g.client.Models()
	if len(models) == 0 {
		return nil, ErrNoProvider
	}

	var lastErr error
	for _, model := range models {
		result, err := g.client.Generate(ctx, model, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		log.Printf("Provider.GenerateText: %s model %s failed, trying next candidate: %v",
			g.client.Name(), model, err)
	}

	return nil, &failoverError{last: lastErr}
}

// failoverError marks exhaustion of every candidate while preserving the last
// per-model error for diagnostics.
type failoverError struct {
	last error
}

func (e *failoverError) Error() string {
	return ErrAllModelsFailed.Error() + ": " + e.last.Error()
}

func (e *failoverError) Is(target error) bool {
	return target == ErrAllModelsFailed
}

func (e *failoverError) Unwrap() error {
	return e.last
}
