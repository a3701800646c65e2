package retriever

import (
	"context"
	"strings"
	"testing"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/askbase/knowledge-backend/internal/vector/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hashProvider embeds text into a small deterministic vector so that equal
// texts are exact neighbors.
type hashProvider struct{}

func (hashProvider) Name() string { return "hash" }

func (hashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r % 31)
	}
	return vec, nil
}

func (hashProvider) Complete(context.Context, provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: "ok"}, nil
}

func storePoint(t *testing.T, coll *memory.Collection, id, text, source string) {
	t.Helper()
	vec, err := hashProvider{}.Embed(context.Background(), text)
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(context.Background(), []vector.Point{{
		ID:     id,
		Vector: vec,
		Payload: vector.Payload{
			Text:       text,
			Source:     source,
			SourceType: string(entity.SourceTypeDocument),
		},
	}}))
}

func TestRetrieve_RoundTrip(t *testing.T) {
	coll := memory.New()
	text := "The deployment pipeline runs unit tests before promoting any build artifact."
	storePoint(t, coll, "p1", text, "ops.md")
	storePoint(t, coll, "p2", strings.Repeat("unrelated filler content about cooking recipes. ", 3), "food.md")

	r := New(nil, zap.NewNop())
	matches, err := r.Retrieve(context.Background(), text, nil, hashProvider{}, coll)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "ops.md", matches[0].SourceName)
	assert.Greater(t, matches[0].Score, float32(0.95))
}

func TestRetrieve_SourceFilterBidirectional(t *testing.T) {
	coll := memory.New()
	storePoint(t, coll, "p1", strings.Repeat("database tuning advice for production workloads. ", 3), "Q3 Report Final.pdf")
	storePoint(t, coll, "p2", strings.Repeat("database tuning advice for production workloads. ", 3), "meeting-notes.txt")

	r := New(nil, zap.NewNop())

	// Filter is a substring of the stored name.
	matches, err := r.Retrieve(context.Background(), "database tuning", []string{"q3 report"}, hashProvider{}, coll)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Q3 Report Final.pdf", matches[0].SourceName)

	// Stored name is a substring of the filter.
	matches, err = r.Retrieve(context.Background(), "database tuning", []string{"copy of meeting-notes.txt"}, hashProvider{}, coll)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "meeting-notes.txt", matches[0].SourceName)
}

func TestRetrieve_DropsShortText(t *testing.T) {
	coll := memory.New()
	storePoint(t, coll, "p1", "tiny", "a.md")

	r := New(nil, zap.NewNop())
	_, err := r.Retrieve(context.Background(), "anything at all", nil, hashProvider{}, coll)
	assert.ErrorIs(t, err, entity.ErrNoRelevantContext)
}

func TestRetrieve_NoMatches(t *testing.T) {
	r := New(nil, zap.NewNop())
	_, err := r.Retrieve(context.Background(), "anything at all", nil, hashProvider{}, memory.New())
	assert.ErrorIs(t, err, entity.ErrNoRelevantContext)
}

func TestRetrieve_FilterMismatch(t *testing.T) {
	coll := memory.New()
	storePoint(t, coll, "p1", strings.Repeat("long enough indexed content for the pool. ", 3), "a.md")

	r := New(nil, zap.NewNop())
	_, err := r.Retrieve(context.Background(), "anything at all", []string{"b.md"}, hashProvider{}, coll)
	assert.ErrorIs(t, err, entity.ErrNoRelevantContext)
}
