package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/domain"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewCredentialsError()
	}
	return user, nil
}

// paramID parses a positive numeric path parameter. Anything else cannot name an
// existing row, so it is reported as not found.
func paramID(c *fiber.Ctx, name, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, nil)
	}
	return id, nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}
