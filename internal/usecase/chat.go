package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chat-widget/internal/domain"
)

const (
	defaultMaxContext     = 20
	defaultMaxMessage     = 2000
	DefaultConversationID = "default"
	statusComplete        = "complete"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type HistoryStore interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	SaveCompletedTurn(ctx context.Context, conversationID, message, reply string, turns int) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService answers one chat message in the context of its conversation.
type ChatService struct {
	params          ParamGetter
	llm             LLMClient
	store           HistoryStore
	paramPrefix     string
	maxContextItems int
	maxMessageLen   int

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	systemPrompt string
	model        string
}

type ChatInput struct {
	Message        string
	ConversationID string
}

type ChatOutput struct {
	Reply          string
	ConversationID string
}

func NewChatService(p ParamGetter, llm LLMClient, store HistoryStore, paramPrefix string, maxContextItems, maxMessageLen int) (*ChatService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxContextItems <= 0 {
		maxContextItems = defaultMaxContext
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessage
	}
	return &ChatService{
		params:          p,
		llm:             llm,
		store:           store,
		paramPrefix:     paramPrefix,
		maxContextItems: maxContextItems,
		maxMessageLen:   maxMessageLen,
	}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len([]rune(message)) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID = DefaultConversationID
	}

	turns, err := s.store.GetConversationTurnCount(ctx, convID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "store_turn_count_error", err)
	}
	history, err := s.store.GetHistory(ctx, convID, s.maxContextItems)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "store_history_error", err)
	}

	reply, err := s.llm.Chat(ctx, s.model, buildPromptMessages(s.systemPrompt, message, history))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return ChatOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "openai_error", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ChatOutput{}, newError(ErrorUpstream, "openai_empty_reply", nil)
	}

	if err := s.store.SaveCompletedTurn(ctx, convID, message, reply, turns+1); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "store_write_error", err)
	}

	return ChatOutput{Reply: reply, ConversationID: convID}, nil
}

func (s *ChatService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	systemPrompt, err := s.params.GetParameter(ctx, s.paramPrefix+"/system_prompt")
	if err != nil {
		return fmt.Errorf("usecase: load system prompt: %w", err)
	}
	model, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/openai_model")
	if err != nil {
		return fmt.Errorf("usecase: load openai model: %w", err)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("usecase: openai model parameter is empty")
	}

	s.systemPrompt = strings.TrimSpace(systemPrompt)
	s.model = model
	s.cacheLoaded = true
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
