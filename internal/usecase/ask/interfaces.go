package ask

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
)

type Retriever interface {
	Retrieve(ctx context.Context, question string, sourceFilters []string, prov provider.Provider, collection vector.Collection) ([]entity.RetrievalMatch, error)
}

type CredentialResolver interface {
	Resolve(ctx context.Context, req credits.Request) (*entity.CredentialContext, error)
	Meter(ctx context.Context, cred *entity.CredentialContext, userID string, action entity.CreditAction, meta map[string]any) *entity.CreditsInfo
}

type ConversationStore interface {
	Create(ctx context.Context, conv entity.Conversation) error
	Get(ctx context.Context, id string) (*entity.Conversation, error)
}
