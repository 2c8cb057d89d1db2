package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/api/dto"
	"github.com/spec-kit/chat-platform/internal/service"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

// FilesHandler manages project attachments.
type FilesHandler struct {
	files *service.FileService
}

// NewFilesHandler constructs handler.
func NewFilesHandler(files *service.FileService) *FilesHandler {
	return &FilesHandler{files: files}
}

// Upload POST /projects/:id/files with multipart field "file".
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", map[string]any{"file": "missing multipart field"})
	}
	body, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer body.Close()

	file, err := h.files.Upload(c.UserContext(), user.ID, projectID, header.Filename,
		header.Header.Get(fiber.HeaderContentType), header.Size, body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewFileResponse(file)})
}

// List GET /projects/:id/files.
func (h *FilesHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	files, err := h.files.List(c.UserContext(), user.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFileList(files)})
}

// Download GET /files/:id streams the blob as an attachment.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	fileID, err := paramID(c, "id", "file")
	if err != nil {
		return err
	}
	file, body, err := h.files.Open(c.UserContext(), user.ID, fileID)
	if err != nil {
		return err
	}

	c.Attachment(file.Filename)
	contentType := file.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	// fasthttp closes body once the response is written.
	return c.SendStream(body, int(file.SizeBytes))
}

// Delete DELETE /files/:id.
func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	fileID, err := paramID(c, "id", "file")
	if err != nil {
		return err
	}
	if err := h.files.Delete(c.UserContext(), user.ID, fileID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
