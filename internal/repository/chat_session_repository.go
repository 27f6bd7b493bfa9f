package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"researchrag/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) GetByID(id uuid.UUID) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.Preload("Documents").Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

func (r *ChatSessionRepository) GetByIDWithMessages(id uuid.UUID) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Preload("Documents").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session with messages failed: %w", err)
	}
	return &session, nil
}

func (r *ChatSessionRepository) List(offset, limit int) ([]model.ChatSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var sessions []model.ChatSession
	err := r.db.Preload("Documents").
		Order("updated_at DESC").Offset(offset).Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *ChatSessionRepository) Delete(id uuid.UUID) error {
	if err := r.db.Delete(&model.ChatSession{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete chat session failed: %w", err)
	}
	return nil
}

// AttachDocuments appends documents to the session's scope and mirrors the
// full set into the legacy document_ids column.
func (r *ChatSessionRepository) AttachDocuments(session *model.ChatSession, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.Model(session).Association("Documents").Append(&docs); err != nil {
		return fmt.Errorf("attach documents failed: %w", err)
	}
	attached := make(map[uuid.UUID]struct{}, len(session.Documents))
	for _, doc := range session.Documents {
		attached[doc.ID] = struct{}{}
	}
	for _, doc := range docs {
		if _, ok := attached[doc.ID]; !ok {
			session.Documents = append(session.Documents, doc)
		}
	}
	session.SetDocumentIDs(session.ScopedDocumentIDs())
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", session.ID).
		Update("document_ids", session.DocumentIDs).Error; err != nil {
		return fmt.Errorf("update legacy document ids failed: %w", err)
	}
	return nil
}

// Touch advances updated_at to the assistant turn's creation time.
func (r *ChatSessionRepository) Touch(id uuid.UUID, at time.Time) error {
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", id).
		Update("updated_at", at).Error; err != nil {
		return fmt.Errorf("touch chat session failed: %w", err)
	}
	return nil
}
