package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/ai"
	"ragdesk/internal/history"
	"ragdesk/internal/metrics"
	"ragdesk/internal/model"
	"ragdesk/internal/rag"
)

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) ([]model.Passage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Passage), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// contextLengthGenerator replies with the length of the CONTEXT block.
type contextLengthGenerator struct {
	prompts [][]ai.ChatMessage
}

func (g *contextLengthGenerator) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	g.prompts = append(g.prompts, messages)
	ctxMsg := messages[len(messages)-2]
	return fmt.Sprintf("context length %d", len(ctxMsg.Content)-len("CONTEXT:\n")), nil
}

type brokenStore struct {
	readErr   error
	appendErr error
}

func (s brokenStore) Session(string) history.Log { return s }

func (s brokenStore) Messages(context.Context) ([]model.Message, error) { return nil, s.readErr }

func (s brokenStore) Append(context.Context, ...model.Message) error { return s.appendErr }

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func hrPassage() model.Passage {
	return model.Passage{
		Content: "Employees accrue 1 sick day/month.",
		Source:  "hr.pdf",
		Page:    intPtr(3),
		URL:     strPtr("https://x/hr.pdf"),
	}
}

func TestAnswerWithCitations_SickLeaveScenario(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "What is our sick leave policy?").Return([]model.Passage{hrPassage()}, nil)
	gen := &contextLengthGenerator{}
	store := history.NewMemoryStore(10, time.Hour)

	svc := NewChatService(retriever, gen, store, nil)
	resp, err := svc.AnswerWithCitations(context.Background(), "What is our sick leave policy?", "rich")
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("context length %d", len("Employees accrue 1 sick day/month.")), resp.Reply)
	assert.Equal(t, []model.Citation{{Source: "hr.pdf", Page: intPtr(3), URL: strPtr("https://x/hr.pdf")}}, resp.Citations)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, []ai.ChatMessage{
		{Role: model.RoleSystem, Content: rag.SystemInstruction},
		{Role: model.RoleSystem, Content: "CONTEXT:\nEmployees accrue 1 sick day/month."},
		{Role: model.RoleUser, Content: "What is our sick leave policy?"},
	}, gen.prompts[0])
	retriever.AssertExpectations(t)
}

func TestAnswerWithCitations_HistoryGrowsByTwoPerTurn(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything).Return([]model.Passage{}, nil)
	gen := &contextLengthGenerator{}
	store := history.NewMemoryStore(10, time.Hour)
	svc := NewChatService(retriever, gen, store, nil)

	const turns = 3
	for i := 0; i < turns; i++ {
		_, err := svc.AnswerWithCitations(context.Background(), fmt.Sprintf("q%d", i), "s1")
		require.NoError(t, err)
	}

	msgs, err := store.Session("s1").Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2*turns)
	for i := 0; i < turns; i++ {
		assert.Equal(t, model.UserMessage(fmt.Sprintf("q%d", i)), msgs[2*i])
		assert.Equal(t, model.RoleAssistant, msgs[2*i+1].Role)
	}

	// the last prompt carries the two earlier turns between instruction and context
	last := gen.prompts[turns-1]
	assert.Len(t, last, 3+2*(turns-1))
	assert.Equal(t, "q0", last[1].Content)
}

func TestAnswerWithCitations_DefaultsToAnonymousSession(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "hi").Return([]model.Passage{}, nil)
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("hello", nil)
	store := history.NewMemoryStore(10, time.Hour)

	resp, err := NewChatService(retriever, gen, store, nil).AnswerWithCitations(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Reply)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)

	msgs, err := store.Session(model.AnonymousSessionID).Messages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestAnswerWithCitations_CitationsIgnoreReplyContent(t *testing.T) {
	passages := []model.Passage{
		hrPassage(),
		{Content: "Holidays.", Source: "hr.pdf"},
		{Content: "Expenses.", Source: "finance.pdf", Page: intPtr(1)},
	}
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "q").Return(passages, nil)
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("I don't know.", nil)

	resp, err := NewChatService(retriever, gen, history.NewMemoryStore(10, time.Hour), nil).
		AnswerWithCitations(context.Background(), "q", "s")
	require.NoError(t, err)
	require.Len(t, resp.Citations, 3)
	for i, p := range passages {
		assert.Equal(t, p.Citation(), resp.Citations[i])
	}
}

func TestAnswerWithCitations_RetrievalErrorSkipsGeneration(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "q").Return(nil, errors.New("search unavailable"))
	gen := new(mockGenerator)
	store := history.NewMemoryStore(10, time.Hour)

	_, err := NewChatService(retriever, gen, store, nil).AnswerWithCitations(context.Background(), "q", "s")
	assert.EqualError(t, err, "search unavailable")
	gen.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	msgs, _ := store.Session("s").Messages(context.Background())
	assert.Empty(t, msgs)
}

func TestAnswerWithCitations_GenerationErrorLeavesHistoryUntouched(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "q").Return([]model.Passage{hrPassage()}, nil)
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("llm response status 429: rate limited"))
	store := history.NewMemoryStore(10, time.Hour)

	_, err := NewChatService(retriever, gen, store, nil).AnswerWithCitations(context.Background(), "q", "s")
	assert.EqualError(t, err, "llm response status 429: rate limited")

	msgs, _ := store.Session("s").Messages(context.Background())
	assert.Empty(t, msgs)
}

func TestGenerateWithHistory_StoreErrors(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	svc := NewChatService(nil, gen, brokenStore{readErr: errors.New("conn refused")}, nil)
	_, err := svc.GenerateWithHistory(context.Background(), "s", "q", "")
	assert.ErrorContains(t, err, "load history failed")
	gen.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	svc = NewChatService(nil, gen, brokenStore{appendErr: errors.New("conn reset")}, nil)
	_, err = svc.GenerateWithHistory(context.Background(), "s", "q", "")
	assert.ErrorContains(t, err, "save history failed")
}

func TestFallbackBackendSeesFirstTurn(t *testing.T) {
	backend := history.ResolveBackend("not a url", time.Hour, 10)
	require.Equal(t, history.InProcess, backend.Kind)
	store := history.NewMemoryStore(backend.MaxSessions, backend.TTL)

	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything).Return([]model.Passage{}, nil)
	gen := &contextLengthGenerator{}
	svc := NewChatService(retriever, gen, store, nil)

	_, err := svc.AnswerWithCitations(context.Background(), "first", "dev")
	require.NoError(t, err)
	_, err = svc.AnswerWithCitations(context.Background(), "second", "dev")
	require.NoError(t, err)

	second := gen.prompts[1]
	assert.Equal(t, ai.ChatMessage{Role: model.RoleUser, Content: "first"}, second[1])
	assert.Equal(t, model.RoleAssistant, second[2].Role)
}

func TestAnswerWithCitations_BlankSessionIDIsItsOwnSession(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "hi").Return([]model.Passage{}, nil)
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("hello", nil)
	store := history.NewMemoryStore(10, time.Hour)

	_, err := NewChatService(retriever, gen, store, nil).AnswerWithCitations(context.Background(), "hi", "  ")
	require.NoError(t, err)

	blank, err := store.Session("  ").Messages(context.Background())
	require.NoError(t, err)
	assert.Len(t, blank, 2)
	anon, err := store.Session(model.AnonymousSessionID).Messages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestAnswerWithCitations_HistoryFailureOutcome(t *testing.T) {
	retriever := new(mockRetriever)
	retriever.On("Retrieve", mock.Anything, "q").Return([]model.Passage{hrPassage()}, nil)
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	historyBefore := testutil.ToFloat64(metrics.ChatTurnsTotal.WithLabelValues("history_error"))
	generationBefore := testutil.ToFloat64(metrics.ChatTurnsTotal.WithLabelValues("generation_error"))

	svc := NewChatService(retriever, gen, brokenStore{appendErr: errors.New("conn reset")}, nil)
	_, err := svc.AnswerWithCitations(context.Background(), "q", "s")
	require.Error(t, err)

	var histErr *HistoryError
	require.True(t, errors.As(err, &histErr))
	assert.Equal(t, "save", histErr.Op)
	assert.EqualError(t, err, "save history failed: conn reset")

	assert.Equal(t, historyBefore+1, testutil.ToFloat64(metrics.ChatTurnsTotal.WithLabelValues("history_error")))
	assert.Equal(t, generationBefore, testutil.ToFloat64(metrics.ChatTurnsTotal.WithLabelValues("generation_error")))
}
