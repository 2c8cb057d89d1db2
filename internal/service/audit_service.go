package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/events"
)

// LoginRecorder counts login attempts by result.
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuditService writes domain events to the audit log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	logins     LoginRecorder
}

// NewAuditService creates the service. logins may be nil.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, logins LoginRecorder) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		logins:     logins,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLogin)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLogin)
	a.dispatcher.Subscribe(events.EventChatTurnCompleted, a.handleChatTurn)
	a.dispatcher.Subscribe(events.EventCompletionFailed, a.handleCompletionFailed)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", zap.String("event_id", event.ID), zap.Int64("user_id", event.UserID))
	return nil
}

func (a *AuditService) handleLogin(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.LoginPayload)
	result := "success"
	switch {
	case payload.Blocked:
		result = "blocked"
	case event.Type == events.EventLoginFailed:
		result = "failure"
	}
	if a.logins != nil {
		a.logins.RecordLogin(result)
	}

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("result", result),
		zap.String("email", payload.Email),
		zap.String("ip_hash", payload.IPHash),
	}
	if event.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", event.UserID))
	}
	if result == "success" {
		a.logger.Info("Login", fields...)
	} else {
		a.logger.Warn("Login", fields...)
	}
	return nil
}

func (a *AuditService) handleChatTurn(_ context.Context, event events.Event) error {
	a.logger.Info("ChatTurnCompleted",
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.UserID),
		zap.Int64("project_id", event.ProjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleCompletionFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("CompletionFailed",
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.UserID),
		zap.Int64("project_id", event.ProjectID),
		zap.Any("payload", event.Payload))
	return nil
}
