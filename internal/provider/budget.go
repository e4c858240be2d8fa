package provider

// Budget enforces the per-call token ceiling. Estimated prompt tokens get a
// 2x allowance over the completion ceiling.
type Budget struct {
	PerCallCeiling int
}

// BudgetRequest carries the figures to check; zero values are skipped.
type BudgetRequest struct {
	EstimatedTokens int
	MaxTokens       int
}

// Enforce rejects the request before any network traffic when either figure
// is over budget.
func (b Budget) Enforce(req BudgetRequest) error {
	if b.PerCallCeiling <= 0 {
		return nil
	}

	if req.MaxTokens > b.PerCallCeiling {
		return &BudgetExceededError{Requested: req.MaxTokens, Ceiling: b.PerCallCeiling}
	}

	if req.EstimatedTokens > 2*b.PerCallCeiling {
		return &BudgetExceededError{Requested: req.EstimatedTokens, Ceiling: 2 * b.PerCallCeiling, Estimated: true}
	}

	return nil
}

// EstimateTokens is a rough prompt-size estimate, ~4 characters per token.
func EstimateTokens(prompt string) int {
	return len(prompt)/4 + 1
}
