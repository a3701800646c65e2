package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/prompt"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// noContextAnswer is returned without any completion call when retrieval
// finds nothing usable. No credits are spent on such a request.
const noContextAnswer = "I could not find any relevant information in your knowledge base to answer this question. Try rephrasing it or ingesting the sources it refers to."

// Usecase runs the question-answering pipeline: credential gate, retrieval
// with diverse context selection, intent-matched prompt composition, one
// completion call, then metering and a best-effort conversation record.
type Usecase struct {
	retriever     Retriever
	credentials   CredentialResolver
	providers     provider.Factory
	collection    vector.Collection
	conversations ConversationStore
	logger        *zap.Logger
}

func NewUsecase(
	retriever Retriever,
	credentials CredentialResolver,
	providers provider.Factory,
	collection vector.Collection,
	conversations ConversationStore,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		retriever:     retriever,
		credentials:   credentials,
		providers:     providers,
		collection:    collection,
		conversations: conversations,
		logger:        logger,
	}
}

func (uc *Usecase) Ask(ctx context.Context, caller entity.Caller, req *entity.AskRequest) (*entity.AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, entity.NewValidationError("question", "question must not be empty")
	}

	cred, err := uc.credentials.Resolve(ctx, credits.Request{
		UserID:   caller.UserID,
		BYOKKey:  caller.ProviderKey,
		Action:   entity.ActionQuestion,
		Quantity: 1,
	})
	if err != nil {
		return nil, err
	}

	prov := uc.providers.ForKey(cred.ResolvedKey)

	matches, err := uc.retriever.Retrieve(ctx, req.Question, req.Sources, prov, uc.collection)
	if err != nil {
		// Nothing retrievable means nothing to compose and nothing to
		// charge: the canned answer is free.
		if errors.Is(err, entity.ErrNoRelevantContext) {
			ctxzap.Info(ctx, "no relevant context for question",
				zap.Int("source_filters", len(req.Sources)),
			)
			return &entity.AskResponse{
				Answer:   noContextAnswer,
				Sources:  []entity.SourceRef{},
				Mode:     cred.KeySource,
				TeamName: cred.TeamName,
			}, nil
		}
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	intent := prompt.Classify(req.Question)
	composed := prompt.Compose(intent, matches, req.Question)

	result, err := prov.Complete(ctx, provider.CompletionRequest{
		SystemPrompt: composed.SystemPrompt,
		UserPrompt:   composed.UserPrompt,
		Temperature:  composed.Temperature,
		MaxTokens:    composed.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("complete answer: %w", err)
	}

	refs := prompt.SourceRefs(matches)

	ctxzap.Info(ctx, "question answered",
		zap.String("intent", string(intent)),
		zap.Int("context_chunks", len(matches)),
		zap.Int("cited_sources", len(refs)),
		zap.String("key_source", string(cred.KeySource)),
		zap.Int("tokens_used", result.TokensUsed),
	)

	var creditsInfo *entity.CreditsInfo
	if caller.UserID != nil {
		creditsInfo = uc.credentials.Meter(ctx, cred, *caller.UserID, entity.ActionQuestion, map[string]any{
			"intent": string(intent),
		})
	}

	resp := &entity.AskResponse{
		Answer:   result.Text,
		Sources:  refs,
		Credits:  creditsInfo,
		Mode:     cred.KeySource,
		TeamName: cred.TeamName,
	}

	if id := uc.recordConversation(ctx, caller, req.Question, result.Text, refs); id != nil {
		resp.ConversationID = id
	}

	return resp, nil
}

// GetConversation loads a stored question/answer record for export.
func (uc *Usecase) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	if uc.conversations == nil {
		return nil, entity.ErrConversationNotFound
	}
	return uc.conversations.Get(ctx, id)
}

// recordConversation persists the Q&A pair. Best-effort: a storage failure
// is logged and the answer is returned without a conversation id.
func (uc *Usecase) recordConversation(ctx context.Context, caller entity.Caller, question, answer string, refs []entity.SourceRef) *string {
	if uc.conversations == nil {
		return nil
	}

	conv := entity.Conversation{
		ID:        uuid.New().String(),
		UserID:    caller.UserID,
		Question:  question,
		Answer:    answer,
		Sources:   refs,
		CreatedAt: time.Now().UTC(),
	}

	if err := uc.conversations.Create(ctx, conv); err != nil {
		ctxzap.Warn(ctx, "conversation record failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return nil
	}

	return &conv.ID
}
