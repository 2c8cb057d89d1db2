package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/limiter"
	"github.com/spec-kit/chat-platform/internal/observability"
	"github.com/spec-kit/chat-platform/internal/repository"
	"github.com/spec-kit/chat-platform/internal/service"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The request logger is outermost so it sees the
// final status of every response, including recovered panics.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(recoverMiddleware(logger))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func recoverMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("request_id", observability.RequestID(c)),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders every handler error as {"error":{"code","message","details"}}.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		domainErr := mapError(err)
		metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

		body := fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", observability.RequestID(c)),
				zap.String("path", c.Path()),
				zap.Error(domainErr))
		}
		for k, v := range domainErr.Headers {
			c.Set(k, v)
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}

// mapError translates package sentinels into HTTP-facing domain errors.
func mapError(err error) *apperrors.DomainError {
	var domainErr *apperrors.DomainError
	var fiberErr *fiber.Error
	var blocked *limiter.BlockedError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &blocked):
		secs := int(math.Ceil(blocked.RetryAfter.Seconds()))
		return apperrors.ToDomainError(apperrors.NewTooManyRequests("Too many failed login attempts. Try again later.", secs))
	case errors.Is(err, limiter.ErrRateLimited):
		return apperrors.ToDomainError(apperrors.NewTooManyRequests("Too many failed login attempts. Try again later.", 0))
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.ToDomainError(apperrors.NewUnauthorized("Incorrect email or password"))
	case errors.Is(err, auth.ErrTokenInvalid):
		return apperrors.ToDomainError(apperrors.NewCredentialsError())
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.ToDomainError(apperrors.NewValidationError("Email already registered", nil))
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.ToDomainError(apperrors.NewNotFound("resource", nil))
	case errors.Is(err, repository.ErrConflict):
		return apperrors.ToDomainError(apperrors.NewConflict("resource already exists", nil))
	case errors.As(err, &fiberErr):
		return fromFiberError(fiberErr)
	}
	return apperrors.ToDomainError(err)
}

func fromFiberError(e *fiber.Error) *apperrors.DomainError {
	code := "HTTP_ERROR"
	switch e.Code {
	case fiber.StatusBadRequest:
		code = "VALIDATION_FAILED"
	case fiber.StatusNotFound:
		code = "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		code = "PAYLOAD_TOO_LARGE"
	}
	return apperrors.NewDomainError(code, e.Message, e.Code, nil)
}
