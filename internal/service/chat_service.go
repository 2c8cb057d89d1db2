package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/events"
	"github.com/spec-kit/chat-platform/internal/llm"
	"github.com/spec-kit/chat-platform/internal/repository"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

// HistoryLimit bounds how many turns History returns.
const HistoryLimit = 50

// Completer produces an assistant reply for a context window.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// ChatTurn is one persisted exchange. Failed is set when the assistant text is a fallback notice.
type ChatTurn struct {
	User      domain.Message
	Assistant domain.Message
	Failed    bool
}

// ChatService runs chat turns against a project's history.
type ChatService struct {
	projects      repository.ProjectRepository
	prompts       repository.PromptRepository
	messages      repository.MessageRepository
	completer     Completer
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	defaultSystem string
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	ProjectRepo         repository.ProjectRepository
	PromptRepo          repository.PromptRepository
	MessageRepo         repository.MessageRepository
	Completer           Completer
	Dispatcher          events.Dispatcher
	Logger              *zap.Logger
	DefaultSystemPrompt string
}

// NewChatService builds the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		projects:      deps.ProjectRepo,
		prompts:       deps.PromptRepo,
		messages:      deps.MessageRepo,
		completer:     deps.Completer,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		defaultSystem: deps.DefaultSystemPrompt,
	}
}

// SendMessage persists the user turn, asks the completer for a reply and persists that too.
// A completer failure never fails the call: its fallback text becomes the assistant turn.
func (s *ChatService) SendMessage(ctx context.Context, userID, projectID int64, content string) (*ChatTurn, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"message": "must not be blank"})
	}

	userMsg := domain.Message{ProjectID: projectID, Role: domain.RoleUser, Content: content}
	if err := s.messages.Create(ctx, &userMsg); err != nil {
		return nil, err
	}

	system, err := s.systemPrompt(ctx, projectID)
	if err != nil {
		return nil, err
	}
	recent, err := s.messages.ListRecent(ctx, projectID, llm.HistoryWindow+1)
	if err != nil {
		return nil, err
	}
	history := make([]domain.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID != userMsg.ID {
			history = append(history, m)
		}
	}
	window := llm.BuildContext(system, history, content)

	start := time.Now()
	reply, err := s.completer.Complete(ctx, window)
	failed := err != nil
	if failed {
		reply = llm.FallbackMessage(err)
		var llmErr *llm.Error
		payload := events.CompletionFailedPayload{Kind: llm.KindOf(err).String(), Message: err.Error()}
		if errors.As(err, &llmErr) {
			payload.StatusCode = llmErr.StatusCode
		}
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventCompletionFailed,
			UserID:    userID,
			ProjectID: projectID,
			Payload:   payload,
		})
	}

	// The reply is stored even if the client has gone away.
	storeCtx := context.WithoutCancel(ctx)
	assistantMsg := domain.Message{ProjectID: projectID, Role: domain.RoleAssistant, Content: reply}
	if err := s.messages.Create(storeCtx, &assistantMsg); err != nil {
		return nil, err
	}

	publish(storeCtx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventChatTurnCompleted,
		UserID:    userID,
		ProjectID: projectID,
		Payload: events.ChatTurnPayload{
			UserMessageID:      userMsg.ID,
			AssistantMessageID: assistantMsg.ID,
			ContextSize:        len(window),
			LatencyMillis:      time.Since(start).Milliseconds(),
		},
	})
	return &ChatTurn{User: userMsg, Assistant: assistantMsg, Failed: failed}, nil
}

// History returns the project's most recent turns in chronological order.
func (s *ChatService) History(ctx context.Context, userID, projectID int64) ([]domain.Message, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	return s.messages.ListRecent(ctx, projectID, HistoryLimit)
}

// systemPrompt is the project's oldest prompt, else the configured default (possibly empty).
func (s *ChatService) systemPrompt(ctx context.Context, projectID int64) (string, error) {
	prompts, err := s.prompts.ListByProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if len(prompts) > 0 && strings.TrimSpace(prompts[0].Text) != "" {
		return prompts[0].Text, nil
	}
	return s.defaultSystem, nil
}
