package export

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/entity"
)

type ConversationReader interface {
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
}
