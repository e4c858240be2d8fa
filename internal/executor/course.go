package executor

import (
	"context"
	"fmt"

	"coursegen-worker/internal/provider"
)

// CourseExecutor is the hand-written executor for the generate_course job
// type. It shares the templated path's prompt rendering and decoding but
// normalizes the payload and stamps subject/grade onto the draft.
type CourseExecutor struct{}

func (e *CourseExecutor) Execute(ctx context.Context, ec *Context) (*Result, error) {
	subject, _ := ec.Payload["subject"].(string)
	grade, _ := ec.Payload["grade"].(string)
	if subject == "" {
		return nil, fmt.Errorf("generate_course payload is missing the subject")
	}
	if grade == "" {
		grade = "4"
	}

	prompt, err := RenderTemplate(courseGenerationPrompt, map[string]interface{}{
		"subject": subject,
		"grade":   grade,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render course prompt: %w", err)
	}

	result, err := ec.Gateway.GenerateText(ctx, provider.Request{
		Prompt:    prompt,
		MaxTokens: 1536,
	})
	if err != nil {
		return nil, err
	}

	draft := DecodeDraft(result.Text)
	draft.Subject = subject
	draft.Grade = grade
	if draft.Title == "" || draft.Title == "Generated content" {
		draft.Title = subject
	}

	return &Result{Draft: draft, AICalls: 1, Raw: result.Text}, nil
}

// RepairText asks the gateway to rewrite one study text that failed a content
// check. Used by the orchestrator's single bounded repair attempt.
func RepairText(ctx context.Context, gw provider.Gateway, content, issue string, maxTokens int) (string, error) {
	prompt, err := RenderTemplate(repairPrompt, map[string]interface{}{
		"content": content,
		"issue":   issue,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render repair prompt: %w", err)
	}

	result, err := gw.GenerateText(ctx, provider.Request{
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	return result.Text, nil
}
