package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/repository/memory"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/selection"
	"echo-assistant-be/pkg/store"
	"echo-assistant-be/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	err error
}

func (a stubAuth) LoginURL(state string) string { return "https://login/" + state }
func (a stubAuth) HandleCallback(ctx context.Context, code string) (*dto.LoginResult, error) {
	return nil, nil
}
func (a stubAuth) Credential(ctx context.Context, accountID string) (*graph.Credential, error) {
	if a.err != nil {
		return nil, a.err
	}
	return graph.NewCredential("token", nil), nil
}
func (a stubAuth) Logout(ctx context.Context, accountID string) error { return nil }

type stubDiscoverer struct{ results []store.RankedResult }

func (d stubDiscoverer) Discover(ctx context.Context, key, query string, cred *graph.Credential) ([]store.RankedResult, error) {
	return d.results, nil
}

type allowAll struct{}

func (allowAll) CheckAccess(ctx context.Context, cred *graph.Credential, f store.FileCandidate) (bool, error) {
	return true, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  [][]store.FileCandidate
	email string
}

func (n *recordingNotifier) SendFilesEmail(ctx context.Context, cred *graph.Credential, recipient string, files []store.FileCandidate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.email = recipient
	n.sent = append(n.sent, files)
	return nil
}

type noHR struct{}

func (noHR) Answer(ctx context.Context, query string) (string, bool) { return "", false }

type keywordClassifier struct{}

func (keywordClassifier) Classify(ctx context.Context, text string) selection.Classification {
	if text == "find benefits" {
		return selection.Classification{Intent: selection.ClassFileSearch, Phrase: "benefits"}
	}
	return selection.Classification{Intent: "general_response"}
}

type echoResponder struct{}

func (echoResponder) Respond(ctx context.Context, text string) string { return "echo: " + text }

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type chatFixture struct {
	svc      *chatService
	uow      *fakeFactory
	sessions interface {
		CurrentChat(ctx context.Context, accountID string) (string, error)
		Get(ctx context.Context, key string) (*store.SelectionSession, error)
	}
	notifier *recordingNotifier
	events   *capturePublisher
	indexes  *vectorindex.MemoryIndex
}

func newChatFixture(t *testing.T, auth IAuthService) chatFixture {
	t.Helper()
	results := []store.RankedResult{
		{FileCandidate: store.FileCandidate{ID: "f1", Name: "Benefits 2023.pdf", WebURL: "https://x/1"}, Score: 0.9},
		{FileCandidate: store.FileCandidate{ID: "f2", Name: "Benefits FAQ.docx", WebURL: "https://x/2"}, Score: 0.5},
	}
	notifier := &recordingNotifier{}
	machine := selection.NewMachine(selection.Deps{
		Discoverer: stubDiscoverer{results: results},
		Access:     allowAll{},
		Notifier:   notifier,
		HR:         noHR{},
		Classifier: keywordClassifier{},
		General:    echoResponder{},
	}, selection.Config{PageSize: 10}, logger.NewNopLogger())

	uow := newFakeFactory()
	sessions := memory.NewSessionRepository(time.Hour)
	pub := &capturePublisher{}
	indexes := vectorindex.NewMemoryIndex()
	svc := NewChatService(uow, sessions, auth, machine, indexes, pub, logger.NewNopLogger()).(*chatService)

	clock := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return chatFixture{svc: svc, uow: uow, sessions: sessions, notifier: notifier, events: pub, indexes: indexes}
}

var alice = Caller{AccountID: "acc-1", Email: "alice@corp.com"}

func TestChatGreetingCreatesTitleAndHistory(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, selection.MsgGreeting, resp.Response)
	assert.Equal(t, selection.IntentGreeting, resp.Intent)
	require.NotEmpty(t, resp.ChatId)

	current, err := f.sessions.CurrentChat(ctx, alice.AccountID)
	require.NoError(t, err)
	assert.Equal(t, resp.ChatId, current)

	rows := f.uow.history.rows
	require.Len(t, rows, 3)
	assert.True(t, rows[0].IsTitle())
	assert.Equal(t, "Chat - Mar 05, 2024 09:30", rows[0].Title())
	assert.Equal(t, "hello", rows[1].UserMessage)
	assert.Equal(t, selection.MsgGreeting, rows[2].AiResponse)
}

func TestChatSearchThenSelect(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	chatID := first.ChatId

	found, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "find benefits", ChatId: chatID})
	require.NoError(t, err)
	assert.Equal(t, selection.MsgSelectPrompt, found.Response)
	require.NotNil(t, found.FilePage)
	assert.Equal(t, 2, found.Total)
	assert.Equal(t, []string{"f1", "f2"}, found.AllFileIDs)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeSearchCompleted, f.events.events[0].EventType())

	sent, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "2", ChatId: chatID})
	require.NoError(t, err)
	assert.Equal(t, selection.IntentFileSent, sent.Intent)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "f2", f.notifier.sent[0][0].ID)
	assert.Equal(t, alice.Email, f.notifier.email)

	sess, err := f.sessions.Get(ctx, store.SessionKey(alice.AccountID, chatID))
	require.NoError(t, err)
	assert.Equal(t, store.StageAwaitingQuery, sess.Stage)
}

func TestChatClientParsedSelection(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "find benefits", ChatId: first.ChatId})
	require.NoError(t, err)

	resp, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{SelectionStage: true, SelectedIndices: []int{1, 2}, ChatId: first.ChatId})
	require.NoError(t, err)
	assert.Equal(t, selection.IntentFileSent, resp.Intent)
	require.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.notifier.sent[0], 2)

	for _, row := range f.uow.history.rows {
		assert.False(t, row.UserMessage == "" && row.AiResponse == "", "blank history row stored")
	}
}

func TestChatBlankMessageWritesNoUserRow(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"empty", ""},
		{"whitespace", "  \t "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, stubAuth{})
			_, err := f.svc.Chat(context.Background(), alice, &dto.ChatRequest{Message: tt.message})
			require.NoError(t, err)

			rows := f.uow.history.rows
			require.Len(t, rows, 2)
			assert.True(t, rows[0].IsTitle())
			assert.Empty(t, rows[1].UserMessage)
			assert.NotEmpty(t, rows[1].AiResponse)
		})
	}
}

func TestChatSessionExpired(t *testing.T) {
	f := newChatFixture(t, stubAuth{err: ErrSessionExpired})

	resp, err := f.svc.Chat(context.Background(), alice, &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, selection.MsgSessionExpired, resp.Response)
	assert.Equal(t, selection.IntentSessionExpired, resp.Intent)
	assert.Empty(t, f.uow.history.rows)
}

func TestChatPurgesOldHistory(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	old := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f.uow.history.rows = append(f.uow.history.rows, &entity.ChatMessage{
		UserEmail: alice.Email, ChatId: "1", UserMessage: "ancient", CreatedAt: old,
	})

	_, err := f.svc.Chat(context.Background(), alice, &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	for _, row := range f.uow.history.rows {
		assert.NotEqual(t, "ancient", row.UserMessage)
	}
}

func TestMessagesSkipTitleRows(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	got, err := f.svc.Messages(ctx, alice, resp.ChatId)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "You", got.Messages[0].Sender)
	assert.Equal(t, "hello", got.Messages[0].Message)
	assert.Equal(t, "AI", got.Messages[1].Sender)
	assert.Equal(t, "2024-03-05 09:30:06", got.Messages[1].Timestamp)

	other, err := f.svc.Messages(ctx, Caller{AccountID: "acc-2", Email: "bob@corp.com"}, resp.ChatId)
	require.NoError(t, err)
	assert.Empty(t, other.Messages)
}

func TestListChatsTitleAndPreview(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	resp, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	chats, err := f.svc.ListChats(ctx, alice)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, resp.ChatId, chats[0].Id)
	assert.Equal(t, "Chat - Mar 05, 2024 09:30", chats[0].Title)
	assert.Equal(t, selection.MsgGreeting, chats[0].Preview)
}

func TestCheckLoginResetsDialogue(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "find benefits", ChatId: first.ChatId})
	require.NoError(t, err)

	got, err := f.svc.CheckLogin(ctx, alice)
	require.NoError(t, err)
	assert.True(t, got.LoggedIn)
	assert.Equal(t, first.ChatId, got.ChatId)

	state, err := f.svc.SessionState(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, store.StageStart, state.Stage)
	assert.Empty(t, state.Files)
}

func TestCheckLoginWithoutHistoryStartsChat(t *testing.T) {
	f := newChatFixture(t, stubAuth{})

	got, err := f.svc.CheckLogin(context.Background(), alice)
	require.NoError(t, err)
	require.NotEmpty(t, got.ChatId)
	require.Len(t, f.uow.history.rows, 1)
	assert.True(t, f.uow.history.rows[0].IsTitle())
}

func TestPaginateAndSkip(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "find benefits", ChatId: first.ChatId})
	require.NoError(t, err)

	page, err := f.svc.PaginateFiles(ctx, alice, 1, ".docx")
	require.NoError(t, err)
	require.Len(t, page.Files, 1)
	assert.Equal(t, "f2", page.Files[0].ID)

	require.NoError(t, f.svc.SkipSelection(ctx, alice))
	state, err := f.svc.SessionState(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, store.StageAwaitingQuery, state.Stage)
	assert.Empty(t, state.Files)
}

func TestNewChatSwitchesCurrent(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	created, err := f.svc.NewChat(ctx, alice)
	require.NoError(t, err)
	current, err := f.sessions.CurrentChat(ctx, alice.AccountID)
	require.NoError(t, err)
	assert.Equal(t, created.ChatId, current)
}

func buildFileIndex(t *testing.T, idx *vectorindex.MemoryIndex, accountID, chatID string) string {
	t.Helper()
	name := vectorindex.FileIndexName(store.SessionKey(accountID, chatID))
	require.NoError(t, idx.Build(context.Background(), name, [][]float32{{1}}, []store.FileCandidate{{ID: "f1"}}))
	return name
}

func TestConversationIndexReleased(t *testing.T) {
	tests := []struct {
		name string
		act  func(ctx context.Context, svc *chatService) error
	}{
		{"new chat", func(ctx context.Context, svc *chatService) error {
			_, err := svc.NewChat(ctx, alice)
			return err
		}},
		{"skip selection", func(ctx context.Context, svc *chatService) error {
			return svc.SkipSelection(ctx, alice)
		}},
		{"check login", func(ctx context.Context, svc *chatService) error {
			_, err := svc.CheckLogin(ctx, alice)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, stubAuth{})
			ctx := context.Background()

			first, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "find benefits"})
			require.NoError(t, err)
			mine := buildFileIndex(t, f.indexes, alice.AccountID, first.ChatId)
			other := buildFileIndex(t, f.indexes, "acc-2", first.ChatId)

			require.NoError(t, tt.act(ctx, f.svc))

			_, err = f.indexes.Load(ctx, mine)
			assert.ErrorIs(t, err, vectorindex.ErrIndexNotFound)
			_, err = f.indexes.Load(ctx, other)
			assert.NoError(t, err)
		})
	}
}

func TestNewChatKeepsIndexOfNewChat(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	ctx := context.Background()

	created, err := f.svc.NewChat(ctx, alice)
	require.NoError(t, err)
	name := buildFileIndex(t, f.indexes, alice.AccountID, created.ChatId)

	_, err = f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, err = f.indexes.Load(ctx, name)
	assert.NoError(t, err)
}

type failingDropper struct{}

func (failingDropper) Drop(ctx context.Context, name string) error {
	return errors.New("database unavailable")
}

func TestIndexDropFailureDoesNotFailNewChat(t *testing.T) {
	f := newChatFixture(t, stubAuth{})
	f.svc.indexes = failingDropper{}
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, alice, &dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	created, err := f.svc.NewChat(ctx, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ChatId)
}
