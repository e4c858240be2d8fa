package provider

import (
	"errors"
	"fmt"
)

// ErrNoProvider means no provider has credentials configured. This is a setup
// error and is never retried.
var ErrNoProvider = errors.New("no LLM provider configured")

// ErrAllModelsFailed wraps the last per-model failure once every candidate of
// a provider has been tried.
var ErrAllModelsFailed = errors.New("all candidate models failed")

// BudgetExceededError is a hard, non-retried rejection raised before any
// network call. Callers must shrink the request, not retry it.
type BudgetExceededError struct {
	Requested int
	Ceiling   int
	Estimated bool
}

func (e *BudgetExceededError) Error() string {
	if e.Estimated {
		return fmt.Sprintf("estimated tokens %d exceed budget of %d", e.Requested, e.Ceiling)
	}
	return fmt.Sprintf("requested max tokens %d exceed per-call ceiling of %d", e.Requested, e.Ceiling)
}

// ProviderError is one failed call against one provider/model pair. It is
// recovered locally through failover and never surfaces as a job failure on
// its own.
type ProviderError struct {
	Provider string
	Model    string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s model %s returned status %d: %s", e.Provider, e.Model, e.Status, e.Message)
	}
	return fmt.Sprintf("%s model %s: %s", e.Provider, e.Model, e.Message)
}
