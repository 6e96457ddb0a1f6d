package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attache-hq/attache/internal/agent"
	"github.com/attache-hq/attache/internal/ask"
	"github.com/attache-hq/attache/internal/config"
	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/llm"
	"github.com/attache-hq/attache/internal/logging"
	"github.com/attache-hq/attache/internal/store"
)

type fixture struct {
	server   *Server
	provider *llm.MockProvider
	threads  *store.ThreadStore
	chats    *store.ChatStore
	ask      *llm.MockCompleter
}

func newFixture(t *testing.T, cfg config.ServerConfig, provider *llm.MockProvider, tools ...agent.Tool) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	threads := store.NewThreadStore(db, provider)
	chats := store.NewChatStore(db)

	catalog := agent.NewCatalog()
	for _, tool := range tools {
		require.NoError(t, catalog.Register(tool))
	}
	executor := agent.NewExecutor(catalog, time.Second, log)
	loop := agent.NewLoop(provider, threads, executor, catalog, "", agent.LoopConfig{
		MaxToolRounds: 3,
		TurnTimeout:   200 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	}, log)

	completer := &llm.MockCompleter{}
	router := ask.NewRouter(completer, ask.NewSearcher(&llm.MockEmbedder{}, chats), chats, 3, log)

	return &fixture{
		server:   New(cfg, loop, router, log),
		provider: provider,
		threads:  threads,
		chats:    chats,
		ask:      completer,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_ChatHappyPath(t *testing.T) {
	provider := llm.NewMockProvider(llm.Turn{Status: llm.TurnCompleted})
	f := newFixture(t, config.ServerConfig{}, provider)

	threadID, err := f.threads.GetOrCreate(context.Background())
	require.NoError(t, err)
	provider.Reply(threadID, "Scheduled for tomorrow at 9.")

	rec := f.do(t, http.MethodPost, "/agent/chat", map[string]string{"message": "book a meeting"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Scheduled for tomorrow at 9.", resp["response"])
}

func TestServer_ChatMissingMessage(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	rec := f.do(t, http.MethodPost, "/agent/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ChatTimeout(t *testing.T) {
	provider := llm.NewMockProvider(llm.Turn{Status: llm.TurnInProgress})
	f := newFixture(t, config.ServerConfig{}, provider)

	rec := f.do(t, http.MethodPost, "/agent/chat", map[string]string{"message": "hang"})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "turn_timeout")
}

// unlinkedCalendar stands in for a capability without stored credentials.
type unlinkedCalendar struct{}

func (unlinkedCalendar) Name() string                { return "read_calendar" }
func (unlinkedCalendar) Description() string         { return "list upcoming events" }
func (unlinkedCalendar) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (unlinkedCalendar) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return nil, fmt.Errorf("listing events: %w", domain.ErrNoCredentials)
}

func TestServer_ChatNoCredentials(t *testing.T) {
	provider := llm.NewMockProvider(llm.Turn{
		Status: llm.TurnRequiresToolOutput,
		Invocations: []domain.ToolInvocation{
			{ID: "call-1", Name: "read_calendar", Arguments: json.RawMessage(`{}`)},
		},
	})
	f := newFixture(t, config.ServerConfig{}, provider, unlinkedCalendar{})

	rec := f.do(t, http.MethodPost, "/agent/chat", map[string]string{"message": "what's on my calendar?"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_credentials")

	// The request fails outright; nothing is submitted as tool output.
	assert.Empty(t, f.provider.Submitted)
}

func TestServer_ThreadResetCreatesFreshThread(t *testing.T) {
	provider := llm.NewMockProvider(llm.Turn{Status: llm.TurnCompleted})
	f := newFixture(t, config.ServerConfig{}, provider)
	ctx := context.Background()

	id1, err := f.threads.GetOrCreate(ctx)
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/agent/thread", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The deleted thread is never resurrected.
	id2, err := f.threads.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestServer_HistoryEmptyWithoutThread(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	rec := f.do(t, http.MethodGet, "/agent/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.ThreadMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Messages)
}

func TestServer_HistoryListsMessagesInOrder(t *testing.T) {
	provider := llm.NewMockProvider()
	f := newFixture(t, config.ServerConfig{}, provider)
	ctx := context.Background()

	threadID, err := f.threads.GetOrCreate(ctx)
	require.NoError(t, err)
	require.NoError(t, provider.AppendMessage(ctx, threadID, domain.RoleUser, "hi"))
	provider.Reply(threadID, "hello")

	rec := f.do(t, http.MethodGet, "/agent/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.ThreadMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, resp.Messages[1].Role)
}

func TestServer_AskHappyPath(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	args, _ := json.Marshal(map[string]string{"approach": "retrieval"})
	f.ask.Responses = []*llm.ChatResponse{
		{Calls: []llm.FunctionCall{{ID: "d1", Name: "decide_approach", Arguments: args}}},
		{Content: "Nothing was discussed."},
	}

	rec := f.do(t, http.MethodPost, "/ask", map[string]string{"query": "what happened?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing was discussed.")
	assert.Contains(t, rec.Body.String(), `"approach":"retrieval"`)
	assert.Contains(t, rec.Body.String(), `"chat_history"`)
}

func TestServer_AskNoDecision(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())
	f.ask.Responses = []*llm.ChatResponse{{Content: "just chatting"}}

	rec := f.do(t, http.MethodPost, "/ask", map[string]string{"query": "hm?"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_decision")
}

func TestServer_AuthToken(t *testing.T) {
	f := newFixture(t, config.ServerConfig{AuthToken: "sekrit"}, llm.NewMockProvider())

	// Health stays open.
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/agent/history", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/agent/history", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	authed := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	rec := f.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MediaUnavailable(t *testing.T) {
	f := newFixture(t, config.ServerConfig{}, llm.NewMockProvider())

	rec := f.do(t, http.MethodPost, "/media/image", map[string]string{"prompt": "a fox"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_EventsStreamDeliversTurnLifecycle(t *testing.T) {
	provider := llm.NewMockProvider(llm.Turn{Status: llm.TurnCompleted})
	f := newFixture(t, config.ServerConfig{}, provider)

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/agent/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the subscription to register before the turn runs.
	require.Eventually(t, func() bool { return f.server.Hub().Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	threadID, err := f.threads.GetOrCreate(context.Background())
	require.NoError(t, err)
	provider.Reply(threadID, "done")

	rec := f.do(t, http.MethodPost, "/agent/chat", map[string]string{"message": "go"})
	require.Equal(t, http.StatusOK, rec.Code)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var evt agent.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, agent.EventTurnStarted, evt.Type)

	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, agent.EventTurnCompleted, evt.Type)
}
