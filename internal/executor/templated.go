package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coursegen-worker/internal/provider"
	"coursegen-worker/pkg/models"
)

// templatedExecutor renders its prompt template from the job payload, calls
// the gateway once and decodes the response into a draft. Responses that are
// not valid JSON are kept as a single raw study text rather than failing.
type templatedExecutor struct {
	spec TemplateSpec
}

func (e *templatedExecutor) Execute(ctx context.Context, ec *Context) (*Result, error) {
	prompt, err := RenderTemplate(e.spec.Prompt, ec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt template: %w", err)
	}

	result, err := ec.Gateway.GenerateText(ctx, provider.Request{
		Prompt:      prompt,
		MaxTokens:   e.spec.MaxTokens,
		Temperature: e.spec.Temperature,
	})
	if err != nil {
		return nil, err
	}

	draft := DecodeDraft(result.Text)
	return &Result{Draft: draft, AICalls: 1, Raw: result.Text}, nil
}

// DecodeDraft parses provider output into a draft, tolerating a JSON object
// embedded in surrounding prose. On parse failure the whole text becomes one
// raw study text.
func DecodeDraft(text string) *models.CourseDraft {
	candidate := extractJSONObject(text)
	if candidate != "" {
		var draft models.CourseDraft
		if err := json.Unmarshal([]byte(candidate), &draft); err == nil && len(draft.StudyTexts) > 0 {
			for i := range draft.StudyTexts {
				if draft.StudyTexts[i].ID == "" {
					draft.StudyTexts[i].ID = fmt.Sprintf("text-%d", i+1)
				}
			}
			return &draft
		}
	}

	return &models.CourseDraft{
		Title: "Generated content",
		StudyTexts: []models.StudyText{
			{ID: "text-1", Content: strings.TrimSpace(text)},
		},
	}
}

// extractJSONObject returns the first top-level {...} span of the text, or "".
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
