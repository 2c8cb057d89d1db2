package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/api/dto"
	"github.com/spec-kit/chat-platform/internal/service"
)

// ProjectsHandler manages projects and their prompts.
type ProjectsHandler struct {
	projects *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projects *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// Create POST /projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	project, err := h.projects.Create(c.UserContext(), user.ID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// List GET /projects.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projects, err := h.projects.List(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectList(projects)})
}

// Get GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	project, err := h.projects.Get(c.UserContext(), user.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Rename PATCH /projects/:id.
func (h *ProjectsHandler) Rename(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	var req dto.ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	project, err := h.projects.Rename(c.UserContext(), user.ID, projectID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Delete DELETE /projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	if err := h.projects.Delete(c.UserContext(), user.ID, projectID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddPrompt POST /projects/:id/prompts.
func (h *ProjectsHandler) AddPrompt(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	var req dto.PromptRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	prompt, err := h.projects.AddPrompt(c.UserContext(), user.ID, projectID, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPromptResponse(prompt)})
}

// ListPrompts GET /projects/:id/prompts.
func (h *ProjectsHandler) ListPrompts(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	prompts, err := h.projects.ListPrompts(c.UserContext(), user.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPromptList(prompts)})
}

// DeletePrompt DELETE /projects/:id/prompts/:promptID.
func (h *ProjectsHandler) DeletePrompt(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	promptID, err := paramID(c, "promptID", "prompt")
	if err != nil {
		return err
	}
	if err := h.projects.DeletePrompt(c.UserContext(), user.ID, projectID, promptID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
