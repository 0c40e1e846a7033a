package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ragdesk/internal/ai"
	"ragdesk/internal/history"
	"ragdesk/internal/metrics"
	"ragdesk/internal/model"
	"ragdesk/internal/rag"
)

// HistoryError marks a failure of the history store during a turn.
type HistoryError struct {
	Op  string
	Err error
}

func (e *HistoryError) Error() string {
	return e.Op + " history failed: " + e.Err.Error()
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]model.Passage, error)
}

type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// ChatService runs one RAG turn: retrieve, generate with session history,
// record the exchange and cite the retrieved passages.
type ChatService struct {
	retriever Retriever
	generator Generator
	history   history.Store
	logger    *zap.Logger
}

func NewChatService(retriever Retriever, generator Generator, store history.Store, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		retriever: retriever,
		generator: generator,
		history:   store,
		logger:    logger,
	}
}

// AnswerWithCitations answers utterance within sessionID's conversation.
// An empty sessionID is the anonymous session; any other value, blank or
// not, names its own session. The returned
// citations mirror the retrieved passages whether or not the reply used them.
func (s *ChatService) AnswerWithCitations(ctx context.Context, utterance, sessionID string) (*model.ChatResponse, error) {
	if sessionID == "" {
		sessionID = model.AnonymousSessionID
	}
	start := time.Now()

	passages, err := s.retriever.Retrieve(ctx, utterance)
	if err != nil {
		metrics.RecordChatTurn("retrieval_error", time.Since(start))
		s.logger.Error("retrieve passages failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	reply, err := s.GenerateWithHistory(ctx, sessionID, utterance, rag.JoinPassages(passages))
	if err != nil {
		outcome := "generation_error"
		var histErr *HistoryError
		if errors.As(err, &histErr) {
			outcome = "history_error"
		}
		metrics.RecordChatTurn(outcome, time.Since(start))
		s.logger.Error("generate reply failed",
			zap.String("session_id", sessionID),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordChatTurn("ok", time.Since(start))
	s.logger.Info("chat turn completed",
		zap.String("session_id", sessionID),
		zap.Int("passages", len(passages)),
		zap.Duration("latency", time.Since(start)),
	)

	return &model.ChatResponse{
		Reply:     reply,
		Citations: rag.Citations(passages),
	}, nil
}

// GenerateWithHistory reads the session's prior messages, builds the prompt,
// calls the model and, only when generation succeeds, appends the user
// utterance followed by the reply.
func (s *ChatService) GenerateWithHistory(ctx context.Context, sessionID, utterance, contextText string) (string, error) {
	log := s.history.Session(sessionID)

	prior, err := log.Messages(ctx)
	if err != nil {
		return "", &HistoryError{Op: "load", Err: err}
	}

	prompt := rag.BuildPrompt(prior, contextText, utterance)
	reply, err := s.generator.Complete(ctx, toChatMessages(prompt))
	if err != nil {
		return "", err
	}

	if err := log.Append(ctx, model.UserMessage(utterance), model.AssistantMessage(reply)); err != nil {
		return "", &HistoryError{Op: "save", Err: err}
	}
	return reply, nil
}

func toChatMessages(messages []model.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(messages))
	for _, item := range messages {
		out = append(out, ai.ChatMessage{
			Role:    item.Role,
			Content: item.Content,
		})
	}
	return out
}
