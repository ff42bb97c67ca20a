package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/event"
	"github.com/garyjia/finnexus/pkg/utils"
)

var (
	// ErrEmptyQuestion is returned for a blank question
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrBusy is returned while a previous question is still being answered
	ErrBusy = errors.New("assistant is busy")
)

// Default transcript texts
const (
	DefaultWelcome = "您好！我是您的 FinNexus 财务助手。我可以访问您的发票和财务图表数据。您可以问我关于收入趋势、待付款项或税务负债的问题。"
	DefaultApology = "抱歉，连接 AI 服务时出现错误。请检查您的网络连接。"
)

// AssistantTexts holds the fixed transcript messages
type AssistantTexts struct {
	Welcome string
	Apology string
}

// SnapshotSource provides the data the assistant answers questions about
type SnapshotSource interface {
	Snapshot(ctx context.Context) (entity.Snapshot, error)
}

// AssistantService keeps the chat transcript
type AssistantService interface {
	// Messages returns a copy of the transcript
	Messages(ctx context.Context) []entity.ChatMessage

	// Ask appends the question and the answer. A failed remote call is
	// recorded as an error-flagged message and is not returned as an error.
	Ask(ctx context.Context, question string) (entity.ChatMessage, error)
}

type assistantServiceImpl struct {
	mu       sync.Mutex
	messages []entity.ChatMessage
	busy     bool

	assistant  port.Assistant
	snapshots  SnapshotSource
	dispatcher dispatcher.Dispatcher
	texts      AssistantTexts
	logger     Logger
	now        func() time.Time
}

// NewAssistantService creates a transcript holding only the welcome message
func NewAssistantService(
	assistant port.Assistant,
	snapshots SnapshotSource,
	disp dispatcher.Dispatcher,
	texts AssistantTexts,
	logger Logger,
) AssistantService {
	if texts.Welcome == "" {
		texts.Welcome = DefaultWelcome
	}
	if texts.Apology == "" {
		texts.Apology = DefaultApology
	}

	s := &assistantServiceImpl{
		assistant:  assistant,
		snapshots:  snapshots,
		dispatcher: disp,
		texts:      texts,
		logger:     orNop(logger),
		now:        time.Now,
	}
	s.messages = []entity.ChatMessage{s.message(entity.RoleModel, texts.Welcome, false)}
	return s
}

func (s *assistantServiceImpl) Messages(ctx context.Context) []entity.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.ChatMessage(nil), s.messages...)
}

func (s *assistantServiceImpl) Ask(ctx context.Context, question string) (entity.ChatMessage, error) {
	if utils.IsBlank(question) {
		return entity.ChatMessage{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return entity.ChatMessage{}, ErrBusy
	}
	s.busy = true
	s.messages = append(s.messages, s.message(entity.RoleUser, question, false))
	s.mu.Unlock()

	reply := s.answer(ctx, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, reply)
	s.busy = false
	return reply, nil
}

// answer never fails; errors become the apology message
func (s *assistantServiceImpl) answer(ctx context.Context, question string) entity.ChatMessage {
	snap, err := s.snapshots.Snapshot(ctx)
	if err == nil {
		var text string
		text, err = s.assistant.AnswerQuestion(ctx, question, snap)
		if err == nil {
			s.logger.Info("Assistant answered", "question_len", len(question), "answer_len", len(text))
			return s.message(entity.RoleModel, text, false)
		}
	}

	s.logger.Error("Assistant call failed", "error", err)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.New(event.TypeAssistantFailed, "assistant", map[string]interface{}{
			"question": utils.Truncate(question, 200),
			"error":    err.Error(),
		}))
	}
	return s.message(entity.RoleModel, s.texts.Apology, true)
}

func (s *assistantServiceImpl) message(role, text string, isError bool) entity.ChatMessage {
	return entity.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
		IsError:   isError,
	}
}
