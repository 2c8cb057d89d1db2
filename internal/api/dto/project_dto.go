package dto

import (
	"time"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// ProjectRequest creates or renames a project.
type ProjectRequest struct {
	Name string `json:"name" form:"name"`
}

type ProjectResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptRequest adds a prompt to a project.
type PromptRequest struct {
	Text string `json:"text" form:"text"`
}

type PromptResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func NewProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
}

func NewProjectList(projects []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, NewProjectResponse(&projects[i]))
	}
	return out
}

func NewPromptResponse(p *domain.Prompt) PromptResponse {
	return PromptResponse{ID: p.ID, Text: p.Text, CreatedAt: p.CreatedAt}
}

func NewPromptList(prompts []domain.Prompt) []PromptResponse {
	out := make([]PromptResponse, 0, len(prompts))
	for i := range prompts {
		out = append(out, NewPromptResponse(&prompts[i]))
	}
	return out
}
