package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"researchrag/internal/ai"
	"researchrag/internal/model"
	"researchrag/internal/repository"
)

const sessionTitleMaxLen = 50

// HistoryCache is the session history cache contract; satisfied by the Redis
// implementation in internal/cache.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uuid.UUID) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uuid.UUID, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uuid.UUID) error
	MarkDirty(ctx context.Context, sessionID uuid.UUID) error
	IsDirty(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// ChatService runs the retrieval-augmented chat turn and manages sessions.
type ChatService struct {
	sessionRepo *repository.ChatSessionRepository
	messageRepo *repository.MessageRepository
	docRepo     *repository.DocumentRepository
	chunkRepo   *repository.ChunkRepository
	retrieval   *RetrievalService
	llmClient   *ai.OpenAICompatibleClient
	llmConfig   ai.ChatConfig
	history     HistoryCache

	historyLimit    int
	historyTruncate int
	log             *zap.Logger
}

func NewChatService(
	sessionRepo *repository.ChatSessionRepository,
	messageRepo *repository.MessageRepository,
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	retrieval *RetrievalService,
	llmClient *ai.OpenAICompatibleClient,
	llmConfig ai.ChatConfig,
	history HistoryCache,
	historyLimit, historyTruncate int,
	log *zap.Logger,
) *ChatService {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if historyTruncate <= 0 {
		historyTruncate = 500
	}
	return &ChatService{
		sessionRepo:     sessionRepo,
		messageRepo:     messageRepo,
		docRepo:         docRepo,
		chunkRepo:       chunkRepo,
		retrieval:       retrieval,
		llmClient:       llmClient,
		llmConfig:       llmConfig,
		history:         history,
		historyLimit:    historyLimit,
		historyTruncate: historyTruncate,
		log:             log,
	}
}

type SendMessageInput struct {
	SessionID uuid.UUID // zero value starts a new session
	Message   string
	// AttachDocumentIDs are added to the session's scope before retrieval.
	AttachDocumentIDs []uuid.UUID
	// FilterDocumentID narrows this turn to one document, overriding the
	// session scope without changing it.
	FilterDocumentID *uuid.UUID
	TopK             int
}

type SendMessageResult struct {
	Session   *model.ChatSession `json:"session"`
	Message   *model.Message     `json:"message"`
	Citations []uuid.UUID        `json:"citations"`
	Sources   []RetrievedChunk   `json:"sources"`
}

// SendMessage runs one chat turn: resolve the session, persist the user
// message, retrieve context, generate, validate citations, persist the
// assistant message. The user message survives even when generation fails.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	// Checked at first use, not at startup, so ingestion-only deployments run
	// without a generation key.
	if s.llmConfig.APIKey == "" {
		return nil, ErrLLMConfig
	}

	session, err := s.resolveSession(input.SessionID, message)
	if err != nil {
		return nil, err
	}

	if len(input.AttachDocumentIDs) > 0 {
		if err := s.attachDocuments(session, input.AttachDocumentIDs); err != nil {
			return nil, err
		}
	}

	scope, err := s.resolveScope(session, input.FilterDocumentID)
	if err != nil {
		return nil, err
	}

	// History is read before the user message is stored so the prompt does
	// not contain the question twice.
	history, err := s.recentHistory(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      model.RoleUser,
		Content:   message,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(userMsg); err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx, session.ID)

	retrieved, err := s.retrieval.Retrieve(ctx, message, input.TopK, scope)
	if err != nil {
		return nil, err
	}

	prompt := []ai.ChatMessage{{Role: model.RoleSystem, Content: buildSystemPrompt(retrieved)}}
	prompt = append(prompt, historyMessages(history, s.historyTruncate)...)
	prompt = append(prompt, ai.ChatMessage{Role: model.RoleUser, Content: message})

	answer, err := s.llmClient.Complete(ctx, s.llmConfig, prompt)
	if err != nil {
		s.log.Error("llm completion failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	citations, dropped := validateCitations(extractCitations(answer), retrieved)
	if dropped > 0 {
		s.log.Warn("dropped citations outside retrieved set",
			zap.String("session_id", session.ID.String()),
			zap.Int("dropped", dropped))
	}

	assistantMsg := &model.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      model.RoleAssistant,
		Content:   answer,
		CreatedAt: time.Now(),
	}
	assistantMsg.SetCitations(citations)
	if err := s.messageRepo.Create(assistantMsg); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Touch(session.ID, assistantMsg.CreatedAt); err != nil {
		s.log.Warn("touch session failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
	}
	s.invalidateHistory(ctx, session.ID)

	return &SendMessageResult{
		Session:   session,
		Message:   assistantMsg,
		Citations: citations,
		Sources:   retrieved,
	}, nil
}

// resolveSession loads an existing session or creates one titled after the
// first message.
func (s *ChatService) resolveSession(sessionID uuid.UUID, firstMessage string) (*model.ChatSession, error) {
	if sessionID != uuid.Nil {
		session, err := s.sessionRepo.GetByID(sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return session, nil
	}

	title := firstMessage
	if runes := []rune(title); len(runes) > sessionTitleMaxLen {
		title = string(runes[:sessionTitleMaxLen]) + "..."
	}
	session := &model.ChatSession{ID: uuid.New(), Title: &title}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) attachDocuments(session *model.ChatSession, ids []uuid.UUID) error {
	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docRepo.GetByID(id)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		docs = append(docs, *doc)
	}
	return s.sessionRepo.AttachDocuments(session, docs)
}

// resolveScope picks the retrieval scope: an explicit per-turn filter beats
// the session's attached documents, and no scope at all searches the corpus.
func (s *ChatService) resolveScope(session *model.ChatSession, filter *uuid.UUID) ([]uuid.UUID, error) {
	if filter != nil {
		doc, err := s.docRepo.GetByID(*filter)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, *filter)
		}
		return []uuid.UUID{*filter}, nil
	}
	return session.ScopedDocumentIDs(), nil
}

// recentHistory serves the prompt history through the cache, falling back to
// the database on a miss or a dirty marker.
func (s *ChatService) recentHistory(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error) {
	if s.history != nil {
		dirty, err := s.history.IsDirty(ctx, sessionID)
		if err != nil {
			s.log.Warn("history dirty check failed", zap.Error(err))
		} else if !dirty {
			if cached, ok, err := s.history.GetHistory(ctx, sessionID); err == nil && ok {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListRecentBySessionID(sessionID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if err := s.history.SetHistory(ctx, sessionID, messages); err != nil {
			s.log.Warn("history cache write failed", zap.Error(err))
		}
	}
	return messages, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uuid.UUID) {
	if s.history == nil {
		return
	}
	if err := s.history.MarkDirty(ctx, sessionID); err != nil {
		s.log.Warn("history dirty marker failed", zap.Error(err))
	}
	if err := s.history.DeleteHistory(ctx, sessionID); err != nil {
		s.log.Warn("history cache invalidate failed", zap.Error(err))
	}
}

type CreateSessionInput struct {
	Title       *string
	DocumentIDs []uuid.UUID
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.ChatSession, error) {
	session := &model.ChatSession{ID: uuid.New(), Title: input.Title}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	if len(input.DocumentIDs) > 0 {
		if err := s.attachDocuments(session, input.DocumentIDs); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *ChatService) ListSessions(offset, limit int) ([]model.ChatSession, error) {
	return s.sessionRepo.List(offset, limit)
}

func (s *ChatService) GetSession(id uuid.UUID) (*model.ChatSession, error) {
	session, err := s.sessionRepo.GetByIDWithMessages(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	session, err := s.sessionRepo.GetByID(id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := s.sessionRepo.Delete(id); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.DeleteHistory(ctx, id); err != nil {
			s.log.Warn("history cache delete failed", zap.Error(err))
		}
	}
	return nil
}

func (s *ChatService) AttachDocument(sessionID, documentID uuid.UUID) (*model.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err := s.attachDocuments(session, []uuid.UUID{documentID}); err != nil {
		return nil, err
	}
	return session, nil
}

// GetChunk resolves a cited chunk for display, including where it came from.
func (s *ChatService) GetChunk(id uuid.UUID) (*ChunkDetail, error) {
	chunk, err := s.chunkRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, id)
	}
	doc, err := s.docRepo.GetByID(chunk.DocumentID)
	if err != nil {
		return nil, err
	}

	detail := &ChunkDetail{Chunk: chunk}
	if doc != nil {
		detail.DocumentName = doc.OriginalFilename
	}
	if chunk.MediaType == model.MediaTypeImage {
		meta := chunk.MetadataMap()
		if url, ok := meta["image_url"].(string); ok && url != "" {
			detail.ImageURL = &url
		}
		if caption, ok := meta["caption"].(string); ok && caption != "" {
			detail.Caption = &caption
		}
	}
	return detail, nil
}

// ChunkDetail is a chunk plus its display context for citation rendering.
type ChunkDetail struct {
	Chunk        *model.Chunk `json:"chunk"`
	DocumentName string       `json:"document_name"`
	ImageURL     *string      `json:"image_url,omitempty"`
	Caption      *string      `json:"caption,omitempty"`
}
