package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChatRepository persists chat sessions and messages
type ChatRepository interface {
	CreateSession(ctx context.Context, session *entities.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*entities.ChatSession, error)
	// AppendTurn inserts the user and assistant messages and bumps the
	// session's last_activity and message_count in one transaction.
	AppendTurn(ctx context.Context, sessionID uuid.UUID, userMsg, assistantMsg *entities.ChatMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]entities.ChatMessage, error)
}
