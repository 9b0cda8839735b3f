package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChatRepository handles chat session and message data operations
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession inserts a chat session
func (r *ChatRepository) CreateSession(ctx context.Context, session *entities.ChatSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// GetSession retrieves a session by id
func (r *ChatRepository) GetSession(ctx context.Context, id uuid.UUID) (*entities.ChatSession, error) {
	var session entities.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// AppendTurn inserts the user and assistant messages and bumps the session
// counters in one transaction
func (r *ChatRepository) AppendTurn(ctx context.Context, sessionID uuid.UUID, userMsg, assistantMsg *entities.ChatMessage) error {
	if userMsg == nil || assistantMsg == nil {
		return errors.New("both turn messages are required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		if err := tx.Create(assistantMsg).Error; err != nil {
			return err
		}
		return tx.Model(&entities.ChatSession{}).
			Where("id = ?", sessionID).
			Updates(map[string]interface{}{
				"message_count": gorm.Expr("message_count + 2"),
				"last_activity": time.Now(),
			}).Error
	})
}

// ListMessages retrieves session messages in conversation order
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]entities.ChatMessage, error) {
	var messages []entities.ChatMessage
	if limit == 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
