package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/repository"
	"github.com/spec-kit/chat-platform/internal/storage"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

const maxProjectNameLength = 200

// ProjectService manages projects and their prompts. Every call is scoped to the owning user;
// another user's project is reported as not found.
type ProjectService struct {
	projects repository.ProjectRepository
	prompts  repository.PromptRepository
	files    repository.FileRepository
	blobs    storage.BlobStore
	logger   *zap.Logger
}

// ProjectDependencies bundles collaborators for the project service.
type ProjectDependencies struct {
	ProjectRepo repository.ProjectRepository
	PromptRepo  repository.PromptRepository
	FileRepo    repository.FileRepository
	Blobs       storage.BlobStore
	Logger      *zap.Logger
}

// NewProjectService builds the service.
func NewProjectService(deps ProjectDependencies) *ProjectService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects: deps.ProjectRepo,
		prompts:  deps.PromptRepo,
		files:    deps.FileRepo,
		blobs:    deps.Blobs,
		logger:   logger,
	}
}

func (s *ProjectService) Create(ctx context.Context, userID int64, name string) (*domain.Project, error) {
	name, err := validateProjectName(name)
	if err != nil {
		return nil, err
	}
	project := &domain.Project{UserID: userID, Name: name}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, userID int64) ([]domain.Project, error) {
	return s.projects.ListByUser(ctx, userID)
}

// Get returns the project if userID owns it.
func (s *ProjectService) Get(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	return ownedProject(ctx, s.projects, userID, projectID)
}

func (s *ProjectService) Rename(ctx context.Context, userID, projectID int64, name string) (*domain.Project, error) {
	name, err := validateProjectName(name)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Rename(ctx, projectID, userID, name); err != nil {
		return nil, notFound(err, "project")
	}
	return ownedProject(ctx, s.projects, userID, projectID)
}

// Delete removes the project; prompts, messages and file records go with it.
// Stored blobs are removed afterwards on a best-effort basis.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID int64) error {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return err
	}
	files, err := s.files.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID, userID); err != nil {
		return notFound(err, "project")
	}
	for _, f := range files {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), f.StorageKey); err != nil {
			s.logger.Warn("blob delete failed", zap.Int64("project_id", projectID), zap.String("key", f.StorageKey), zap.Error(err))
		}
	}
	return nil
}

func (s *ProjectService) AddPrompt(ctx context.Context, userID, projectID int64, text string) (*domain.Prompt, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("prompt text is required", map[string]any{"text": "must not be blank"})
	}
	prompt := &domain.Prompt{ProjectID: projectID, Text: text}
	if err := s.prompts.Create(ctx, prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

// ListPrompts returns prompts oldest first; the first one is the project's system instruction.
func (s *ProjectService) ListPrompts(ctx context.Context, userID, projectID int64) ([]domain.Prompt, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	return s.prompts.ListByProject(ctx, projectID)
}

func (s *ProjectService) DeletePrompt(ctx context.Context, userID, projectID, promptID int64) error {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return err
	}
	return notFound(s.prompts.Delete(ctx, promptID, projectID), "prompt")
}

func ownedProject(ctx context.Context, projects repository.ProjectRepository, userID, projectID int64) (*domain.Project, error) {
	project, err := projects.GetForUser(ctx, projectID, userID)
	if err != nil {
		return nil, notFound(err, "project")
	}
	return project, nil
}

// notFound converts repository.ErrNotFound into a 404 for resource.
func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func validateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", apperrors.NewValidationError("project name is required", map[string]any{"name": "must not be blank"})
	case len(name) > maxProjectNameLength:
		return "", apperrors.NewValidationError("project name too long", map[string]any{"name": "at most 200 characters"})
	}
	return name, nil
}
