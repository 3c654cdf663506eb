package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/internal/repository/specification"
	"echo-assistant-be/internal/repository/unitofwork"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/selection"
	"echo-assistant-be/pkg/store"
	"echo-assistant-be/pkg/vectorindex"
)

const (
	DefaultHistoryRetention = 3 * 24 * time.Hour
	titleLayout             = "Jan 02, 2006 15:04"
	messageTimeLayout       = "2006-01-02 15:04:05"
)

// Caller identifies the signed-in user behind a request.
type Caller struct {
	AccountID string
	Email     string
}

type IChatService interface {
	Chat(ctx context.Context, caller Caller, req *dto.ChatRequest) (*dto.ChatResponse, error)
	CheckLogin(ctx context.Context, caller Caller) (*dto.CheckLoginResponse, error)
	NewChat(ctx context.Context, caller Caller) (*dto.NewChatResponse, error)
	SessionState(ctx context.Context, caller Caller) (*dto.SessionStateResponse, error)
	PaginateFiles(ctx context.Context, caller Caller, page int, typeFilter string) (*selection.FilePage, error)
	SkipSelection(ctx context.Context, caller Caller) error
	ListChats(ctx context.Context, caller Caller) ([]dto.ChatSummaryResponse, error)
	Messages(ctx context.Context, caller Caller, chatID string) (*dto.ChatMessagesResponse, error)
}

// IndexDropper releases a conversation's file search index.
type IndexDropper interface {
	Drop(ctx context.Context, name string) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   contract.SessionRepository
	auth       IAuthService
	machine    *selection.Machine
	indexes    IndexDropper
	publisher  events.Publisher
	logger     logger.ILogger
	retention  time.Duration
	now        func() time.Time
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sessions contract.SessionRepository,
	auth IAuthService,
	machine *selection.Machine,
	indexes IndexDropper,
	publisher events.Publisher,
	log logger.ILogger,
) IChatService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &chatService{
		uowFactory: uowFactory,
		sessions:   sessions,
		auth:       auth,
		machine:    machine,
		indexes:    indexes,
		publisher:  publisher,
		logger:     log,
		retention:  DefaultHistoryRetention,
		now:        time.Now,
	}
}

func (s *chatService) history(ctx context.Context) contract.ChatHistoryRepository {
	return s.uowFactory.NewUnitOfWork(ctx).ChatHistoryRepository()
}

func (s *chatService) newChatID() string {
	return strconv.FormatInt(s.now().Unix(), 10)
}

func (s *chatService) Chat(ctx context.Context, caller Caller, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	s.purge(ctx)

	chatID, err := s.resolveChat(ctx, caller, req.ChatId)
	if err != nil {
		return nil, err
	}

	cred, err := s.auth.Credential(ctx, caller.AccountID)
	if errors.Is(err, ErrSessionExpired) {
		_ = s.sessions.Delete(ctx, store.SessionKey(caller.AccountID, chatID))
		return &dto.ChatResponse{
			Reply:  selection.Reply{Response: selection.MsgSessionExpired, Intent: selection.IntentSessionExpired},
			ChatId: chatID,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.ensureTitle(ctx, caller.Email, chatID); err != nil {
		return nil, err
	}
	// Selections parsed by the client arrive without text.
	if strings.TrimSpace(req.Message) != "" {
		if err := s.saveMessage(ctx, caller.Email, chatID, req.Message, ""); err != nil {
			return nil, err
		}
	}

	sess, err := s.loadSession(ctx, caller, chatID)
	if err != nil {
		return nil, err
	}

	reply := s.machine.Handle(ctx, sess, cred, selection.Turn{
		Message:         req.Message,
		SelectionStage:  req.SelectionStage,
		SelectedIndices: req.SelectedIndices,
	})

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.saveMessage(ctx, caller.Email, chatID, "", reply.Response); err != nil {
		return nil, err
	}

	if reply.FilePage != nil {
		evt := events.SearchCompleted(caller.Email, chatID, sess.LastQuery, reply.FilePage.Total)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("ChatService", "Failed to publish search event", map[string]interface{}{"error": err.Error()})
		}
	}

	return &dto.ChatResponse{Reply: reply, ChatId: chatID}, nil
}

// resolveChat picks the chat a turn belongs to: the one the client names, the
// account's current chat, or a fresh one.
func (s *chatService) resolveChat(ctx context.Context, caller Caller, requested string) (string, error) {
	chatID := requested
	if chatID == "" {
		current, err := s.sessions.CurrentChat(ctx, caller.AccountID)
		if err != nil {
			return "", fmt.Errorf("load current chat: %w", err)
		}
		chatID = current
	}
	if chatID == "" {
		chatID = s.newChatID()
	}
	if err := s.sessions.SetCurrentChat(ctx, caller.AccountID, chatID); err != nil {
		return "", fmt.Errorf("set current chat: %w", err)
	}
	return chatID, nil
}

func (s *chatService) loadSession(ctx context.Context, caller Caller, chatID string) (*store.SelectionSession, error) {
	sess, err := s.sessions.Get(ctx, store.SessionKey(caller.AccountID, chatID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = store.NewSelectionSession(caller.AccountID, chatID, caller.Email)
	}
	return sess, nil
}

func (s *chatService) saveMessage(ctx context.Context, email, chatID, userMessage, aiResponse string) error {
	err := s.history(ctx).Create(ctx, &entity.ChatMessage{
		UserEmail:   email,
		ChatId:      chatID,
		UserMessage: userMessage,
		AiResponse:  aiResponse,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}
	return nil
}

// ensureTitle writes the title row of a chat that has no rows yet.
func (s *chatService) ensureTitle(ctx context.Context, email, chatID string) error {
	n, err := s.history(ctx).Count(ctx,
		specification.ByUserEmail{Email: email},
		specification.ByChatID{ChatID: chatID},
	)
	if err != nil {
		return fmt.Errorf("count chat rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	title := entity.TitlePrefix + "Chat - " + s.now().Format(titleLayout)
	return s.saveMessage(ctx, email, chatID, title, "")
}

// releaseIndex drops the conversation's file index. The candidates kept in the
// session do not depend on it, so a failure only costs memory.
func (s *chatService) releaseIndex(ctx context.Context, accountID, chatID string) {
	if s.indexes == nil || chatID == "" {
		return
	}
	name := vectorindex.FileIndexName(store.SessionKey(accountID, chatID))
	if err := s.indexes.Drop(ctx, name); err != nil {
		s.logger.Warn("ChatService", "Failed to drop file index", map[string]interface{}{"index": name, "error": err.Error()})
	}
}

func (s *chatService) purge(ctx context.Context) {
	removed, err := s.history(ctx).DeleteOlderThan(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.Warn("ChatService", "History purge failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if removed > 0 {
		s.logger.Info("ChatService", "Purged old chat history", map[string]interface{}{"rows": removed})
	}
}

func (s *chatService) CheckLogin(ctx context.Context, caller Caller) (*dto.CheckLoginResponse, error) {
	chatID, err := s.sessions.CurrentChat(ctx, caller.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load current chat: %w", err)
	}
	if chatID == "" {
		ids, err := s.history(ctx).ChatIDs(ctx, caller.Email)
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
		if len(ids) > 0 {
			chatID = ids[0]
		}
	}
	if chatID == "" {
		chatID = s.newChatID()
		if err := s.ensureTitle(ctx, caller.Email, chatID); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.SetCurrentChat(ctx, caller.AccountID, chatID); err != nil {
		return nil, fmt.Errorf("set current chat: %w", err)
	}

	// A fresh login starts the dialogue over.
	sess, err := s.loadSession(ctx, caller, chatID)
	if err != nil {
		return nil, err
	}
	sess.Candidates = nil
	sess.Stage = store.StageStart
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.releaseIndex(ctx, caller.AccountID, chatID)

	return &dto.CheckLoginResponse{LoggedIn: true, ChatId: chatID, UserEmail: caller.Email}, nil
}

func (s *chatService) NewChat(ctx context.Context, caller Caller) (*dto.NewChatResponse, error) {
	previous, err := s.sessions.CurrentChat(ctx, caller.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load current chat: %w", err)
	}
	chatID := s.newChatID()
	if err := s.ensureTitle(ctx, caller.Email, chatID); err != nil {
		return nil, err
	}
	if err := s.sessions.SetCurrentChat(ctx, caller.AccountID, chatID); err != nil {
		return nil, fmt.Errorf("set current chat: %w", err)
	}
	if err := s.sessions.Save(ctx, store.NewSelectionSession(caller.AccountID, chatID, caller.Email)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if previous != chatID {
		s.releaseIndex(ctx, caller.AccountID, previous)
	}
	s.logger.Info("ChatService", "New chat started", map[string]interface{}{"chat_id": chatID, "email": caller.Email})
	return &dto.NewChatResponse{ChatId: chatID}, nil
}

func (s *chatService) currentSession(ctx context.Context, caller Caller) (*store.SelectionSession, error) {
	chatID, err := s.sessions.CurrentChat(ctx, caller.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load current chat: %w", err)
	}
	return s.loadSession(ctx, caller, chatID)
}

func (s *chatService) SessionState(ctx context.Context, caller Caller) (*dto.SessionStateResponse, error) {
	sess, err := s.currentSession(ctx, caller)
	if err != nil {
		return nil, err
	}
	files := sess.Candidates
	if files == nil {
		files = []store.RankedResult{}
	}
	return &dto.SessionStateResponse{Stage: sess.Stage, ChatId: sess.ChatID, Files: files}, nil
}

func (s *chatService) PaginateFiles(ctx context.Context, caller Caller, page int, typeFilter string) (*selection.FilePage, error) {
	sess, err := s.currentSession(ctx, caller)
	if err != nil {
		return nil, err
	}
	result := s.machine.Paginate(sess, page, typeFilter)
	return &result, nil
}

func (s *chatService) SkipSelection(ctx context.Context, caller Caller) error {
	sess, err := s.currentSession(ctx, caller)
	if err != nil {
		return err
	}
	s.machine.Skip(sess)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.releaseIndex(ctx, caller.AccountID, sess.ChatID)
	return nil
}

func (s *chatService) ListChats(ctx context.Context, caller Caller) ([]dto.ChatSummaryResponse, error) {
	repo := s.history(ctx)
	ids, err := repo.ChatIDs(ctx, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	out := make([]dto.ChatSummaryResponse, 0, len(ids))
	for _, id := range ids {
		summary := entity.ChatSummary{ChatId: id, Title: "Chat " + id}
		title, err := repo.FindOne(ctx,
			specification.ByUserEmail{Email: caller.Email},
			specification.ByChatID{ChatID: id},
			specification.TitleRows{},
		)
		if err != nil {
			return nil, fmt.Errorf("load chat title: %w", err)
		}
		if title != nil {
			summary.Title = title.Title()
		}
		first, err := repo.FindOne(ctx,
			specification.ByUserEmail{Email: caller.Email},
			specification.ByChatID{ChatID: id},
			specification.WithAiResponse{},
			specification.OrderBy{Field: "created_at", Desc: false},
		)
		if err != nil {
			return nil, fmt.Errorf("load chat preview: %w", err)
		}
		if first != nil {
			summary.Preview = preview(first.AiResponse)
		}
		out = append(out, dto.ChatSummaryResponse{Id: summary.ChatId, Title: summary.Title, Preview: summary.Preview})
	}
	return out, nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= 60 {
		return text
	}
	return string(r[:60]) + "..."
}

func (s *chatService) Messages(ctx context.Context, caller Caller, chatID string) (*dto.ChatMessagesResponse, error) {
	rows, err := s.history(ctx).FindAll(ctx,
		specification.ByUserEmail{Email: caller.Email},
		specification.ByChatID{ChatID: chatID},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	out := &dto.ChatMessagesResponse{Messages: []dto.ChatMessageResponse{}}
	for _, row := range rows {
		if row.IsTitle() {
			continue
		}
		ts := row.CreatedAt.Format(messageTimeLayout)
		if row.UserMessage != "" {
			out.Messages = append(out.Messages, dto.ChatMessageResponse{Sender: "You", Message: row.UserMessage, Timestamp: ts})
		}
		if row.AiResponse != "" {
			out.Messages = append(out.Messages, dto.ChatMessageResponse{Sender: "AI", Message: row.AiResponse, Timestamp: ts})
		}
	}
	return out, nil
}
