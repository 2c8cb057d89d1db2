package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/events"
)

// ErrEmailTaken is returned when registering an address that already has an account.
var ErrEmailTaken = errors.New("email already registered")

var timeNow = time.Now

// publish stamps and dispatches an audit event. Delivery problems are logged, never returned.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = timeNow()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("audit event not delivered", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
