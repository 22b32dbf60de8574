// Package runner executes candidate code against a task and reports the outcome.
package runner

import (
	"context"

	"github.com/ashureev/interviewer/internal/domain"
)

// Request is a single code submission.
type Request struct {
	Code      string          `json:"code"`
	TaskID    string          `json:"task_id"`
	Language  domain.Language `json:"language,omitempty"`
	UserID    string          `json:"-"`
	SessionID string          `json:"-"`
}

// NextTask is a follow-up task proposed after a run.
type NextTask struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

// Task converts the follow-up to the task shape offered to the candidate.
func (n NextTask) Task() domain.Task {
	return domain.Task{ID: n.TaskID, Description: n.Description, StarterCode: n.Template}
}

// Result is the runner reply.
type Result struct {
	Success     bool      `json:"success"`
	Results     []string  `json:"results"`
	LLMFeedback string    `json:"llm_feedback"`
	NextTask    *NextTask `json:"next_task,omitempty"`
	IsFinal     bool      `json:"is_final"`
}

// Runner executes code for a task.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Ensure implementations satisfy Runner.
var (
	_ Runner = (*HTTPClient)(nil)
	_ Runner = (*Sandbox)(nil)
)
