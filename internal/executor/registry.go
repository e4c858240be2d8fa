// Package executor maps job-type identifiers to the strategy that produces
// draft content for them. Two kinds of executor satisfy the same interface:
// hand-written ones with custom logic and templated ones driven by a prompt
// template.
package executor

import (
	"context"
	"fmt"

	"coursegen-worker/internal/provider"
	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
)

// Context carries everything an executor may need for one run.
type Context struct {
	JobID    uuid.UUID
	TargetID uuid.UUID
	Payload  map[string]interface{}
	Gateway  provider.Gateway
}

// Result is the outcome of one executor run. Raw preserves the unparsed
// provider text when JSON decoding fell back.
type Result struct {
	Draft   *models.CourseDraft
	AICalls int
	Raw     string
}

// Executor produces draft content for one job type.
type Executor interface {
	Execute(ctx context.Context, ec *Context) (*Result, error)
}

// Registry resolves a job type to its executor.
type Registry struct {
	executors map[string]Executor
}

// TemplateSpec declares a templated executor: a prompt template rendered from
// the job payload and sent through the gateway.
type TemplateSpec struct {
	Prompt      string
	MaxTokens   int
	Temperature *float64 // nil uses the provider default
}

// NewRegistry builds the registry from hand-written executors and templated
// specs. A hand-written executor wins over a templated one registered for the
// same job type.
func NewRegistry(custom map[string]Executor, templates map[string]TemplateSpec) *Registry {
	executors := make(map[string]Executor, len(custom)+len(templates))

	for jobType, spec := range templates {
		executors[jobType] = &templatedExecutor{spec: spec}
	}
	for jobType, exec := range custom {
		executors[jobType] = exec
	}

	return &Registry{executors: executors}
}

// DefaultRegistry returns the built-in job types.
func DefaultRegistry() *Registry {
	return NewRegistry(
		map[string]Executor{
			"generate_course": &CourseExecutor{},
		},
		map[string]TemplateSpec{
			"generate_quiz":  {Prompt: quizGenerationPrompt, MaxTokens: 1024},
			"rewrite_lesson": {Prompt: lessonRewritePrompt, MaxTokens: 1024},
		},
	)
}

// Lookup returns the executor for a job type; unknown types are an error.
func (r *Registry) Lookup(jobType string) (Executor, error) {
	exec, ok := r.executors[jobType]
	if !ok {
		return nil, fmt.Errorf("no executor registered for job type %q", jobType)
	}
	return exec, nil
}

// Types returns the registered job types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.executors))
	for jobType := range r.executors {
		types = append(types, jobType)
	}
	return types
}
