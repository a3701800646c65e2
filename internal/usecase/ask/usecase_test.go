package ask

import (
	"context"
	"fmt"
	"testing"

	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/askbase/knowledge-backend/internal/vector/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRetriever struct {
	matches []entity.RetrievalMatch
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ []string, _ provider.Provider, _ vector.Collection) ([]entity.RetrievalMatch, error) {
	return f.matches, f.err
}

type fakeResolver struct {
	cred        *entity.CredentialContext
	resolveErr  error
	creditsInfo *entity.CreditsInfo

	resolveCalls int
	meterCalls   int
}

func (f *fakeResolver) Resolve(_ context.Context, _ credits.Request) (*entity.CredentialContext, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.cred, nil
}

func (f *fakeResolver) Meter(_ context.Context, cred *entity.CredentialContext, _ string, _ entity.CreditAction, _ map[string]any) *entity.CreditsInfo {
	if !cred.Metered() {
		return nil
	}
	f.meterCalls++
	return f.creditsInfo
}

// fakeCompleter records the completion request it received.
type fakeCompleter struct {
	answer      string
	completeErr error

	completeCalls int
	lastRequest   provider.CompletionRequest
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeCompleter) Complete(_ context.Context, req provider.CompletionRequest) (*provider.CompletionResult, error) {
	f.completeCalls++
	f.lastRequest = req
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &provider.CompletionResult{Text: f.answer, TokensUsed: 42}, nil
}

type fakeFactory struct {
	prov provider.Provider
}

func (f *fakeFactory) ForKey(string) provider.Provider { return f.prov }

type fakeStore struct {
	createErr error
	created   []entity.Conversation
}

func (f *fakeStore) Create(_ context.Context, conv entity.Conversation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, conv)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*entity.Conversation, error) {
	for i := range f.created {
		if f.created[i].ID == id {
			return &f.created[i], nil
		}
	}
	return nil, entity.ErrConversationNotFound
}

func testMatches() []entity.RetrievalMatch {
	return []entity.RetrievalMatch{
		{Text: "The rollout finished in March after two pilot phases.", SourceName: "rollout.pdf", SourceType: entity.SourceTypeDocument, Score: 0.91},
		{Text: "Support tickets dropped by forty percent after the rollout.", SourceName: "metrics.txt", SourceType: entity.SourceTypeDocument, Score: 0.84},
	}
}

func strptr(s string) *string { return &s }

func newTestUsecase(retriever Retriever, resolver *fakeResolver, completer *fakeCompleter, store ConversationStore) *Usecase {
	return NewUsecase(retriever, resolver, &fakeFactory{prov: completer}, memory.New(), store, zap.NewNop())
}

func TestAsk_AnswersWithCitations(t *testing.T) {
	resolver := &fakeResolver{
		cred:        &entity.CredentialContext{KeySource: entity.KeySourceCredits, ResolvedKey: "sk-server", CostInCredits: 1},
		creditsInfo: &entity.CreditsInfo{Used: 1, Remaining: 9},
	}
	completer := &fakeCompleter{answer: "The rollout finished in March [1]."}
	store := &fakeStore{}
	uc := newTestUsecase(&fakeRetriever{matches: testMatches()}, resolver, completer, store)

	resp, err := uc.Ask(context.Background(), entity.Caller{UserID: strptr("u1")}, &entity.AskRequest{Question: "When did the rollout finish?"})
	require.NoError(t, err)

	assert.Equal(t, "The rollout finished in March [1].", resp.Answer)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, 1, resp.Sources[0].Number)
	assert.Equal(t, "rollout.pdf", resp.Sources[0].Source)
	assert.Equal(t, entity.KeySourceCredits, resp.Mode)
	require.NotNil(t, resp.Credits)
	assert.Equal(t, int64(9), resp.Credits.Remaining)
	assert.Equal(t, 1, resolver.meterCalls)

	require.NotNil(t, resp.ConversationID)
	require.Len(t, store.created, 1)
	assert.Equal(t, *resp.ConversationID, store.created[0].ID)
}

func TestAsk_NoRelevantContextIsFree(t *testing.T) {
	resolver := &fakeResolver{cred: &entity.CredentialContext{KeySource: entity.KeySourceCredits, ResolvedKey: "sk-server", CostInCredits: 1}}
	completer := &fakeCompleter{answer: "never used"}
	uc := newTestUsecase(&fakeRetriever{err: entity.ErrNoRelevantContext}, resolver, completer, &fakeStore{})

	resp, err := uc.Ask(context.Background(), entity.Caller{UserID: strptr("u1")}, &entity.AskRequest{Question: "Anything about llamas?"})
	require.NoError(t, err)

	assert.Equal(t, noContextAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Nil(t, resp.Credits)
	assert.Equal(t, 0, completer.completeCalls)
	assert.Equal(t, 0, resolver.meterCalls)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	resolver := &fakeResolver{cred: &entity.CredentialContext{KeySource: entity.KeySourceBYOK, ResolvedKey: "sk"}}
	uc := newTestUsecase(&fakeRetriever{}, resolver, &fakeCompleter{}, &fakeStore{})

	_, err := uc.Ask(context.Background(), entity.Caller{}, &entity.AskRequest{Question: "   "})

	var validationErr *entity.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, resolver.resolveCalls)
}

func TestAsk_CredentialFailurePropagates(t *testing.T) {
	resolver := &fakeResolver{resolveErr: entity.ErrNoServerKey}
	uc := newTestUsecase(&fakeRetriever{matches: testMatches()}, resolver, &fakeCompleter{}, &fakeStore{})

	_, err := uc.Ask(context.Background(), entity.Caller{}, &entity.AskRequest{Question: "When did the rollout finish?"})
	assert.ErrorIs(t, err, entity.ErrNoServerKey)
}

func TestAsk_SynthesisUsesLooserTemperature(t *testing.T) {
	resolver := &fakeResolver{cred: &entity.CredentialContext{KeySource: entity.KeySourceBYOK, ResolvedKey: "sk"}}
	completer := &fakeCompleter{answer: "A summary."}
	uc := newTestUsecase(&fakeRetriever{matches: testMatches()}, resolver, completer, &fakeStore{})

	_, err := uc.Ask(context.Background(), entity.Caller{ProviderKey: "sk"}, &entity.AskRequest{Question: "Summarize the rollout across all documents"})
	require.NoError(t, err)

	assert.InDelta(t, 0.3, completer.lastRequest.Temperature, 1e-9)
}

func TestAsk_ConversationFailureDoesNotFailAnswer(t *testing.T) {
	resolver := &fakeResolver{cred: &entity.CredentialContext{KeySource: entity.KeySourceBYOK, ResolvedKey: "sk"}}
	store := &fakeStore{createErr: fmt.Errorf("db down")}
	uc := newTestUsecase(&fakeRetriever{matches: testMatches()}, resolver, &fakeCompleter{answer: "ok"}, store)

	resp, err := uc.Ask(context.Background(), entity.Caller{ProviderKey: "sk"}, &entity.AskRequest{Question: "When did the rollout finish?"})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Answer)
	assert.Nil(t, resp.ConversationID)
}

func TestAsk_CompletionFailureSkipsMetering(t *testing.T) {
	resolver := &fakeResolver{cred: &entity.CredentialContext{KeySource: entity.KeySourceCredits, ResolvedKey: "sk-server", CostInCredits: 1}}
	completer := &fakeCompleter{completeErr: &entity.UpstreamProviderError{Provider: "fake", Op: "complete", Err: fmt.Errorf("rate limited")}}
	uc := newTestUsecase(&fakeRetriever{matches: testMatches()}, resolver, completer, &fakeStore{})

	_, err := uc.Ask(context.Background(), entity.Caller{UserID: strptr("u1")}, &entity.AskRequest{Question: "When did the rollout finish?"})

	require.Error(t, err)
	assert.Equal(t, 0, resolver.meterCalls)
}

func TestGetConversation(t *testing.T) {
	store := &fakeStore{created: []entity.Conversation{{ID: "c1", Question: "q", Answer: "a"}}}
	uc := newTestUsecase(&fakeRetriever{}, &fakeResolver{}, &fakeCompleter{}, store)

	conv, err := uc.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "q", conv.Question)

	_, err = uc.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrConversationNotFound)
}
