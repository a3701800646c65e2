package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider embeds deterministically and fails on texts containing
// "poison".
type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "poison") {
		return nil, &entity.UpstreamProviderError{Provider: "fake", Op: "embed", Err: fmt.Errorf("boom")}
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (fakeProvider) Complete(context.Context, provider.CompletionRequest) (*provider.CompletionResult, error) {
	return &provider.CompletionResult{Text: "ok"}, nil
}

func testChunks(n int) []entity.Chunk {
	chunks := make([]entity.Chunk, n)
	for i := range chunks {
		chunks[i] = entity.Chunk{
			Text:                fmt.Sprintf("chunk %d content with enough text to matter", i),
			SourceName:          "doc.pdf",
			SourceType:          entity.SourceTypeDocument,
			OrdinalIndex:        i,
			TotalChunksInSource: n,
		}
	}
	return chunks
}

func TestIndex_StoresAllChunks(t *testing.T) {
	ix := New(zap.NewNop())
	coll := memory.New()

	count, err := ix.Index(context.Background(), testChunks(250), fakeProvider{}, coll, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 250, count)
	assert.Equal(t, 250, coll.Len())
}

func TestIndex_OneFailureAbortsWholeSource(t *testing.T) {
	ix := New(zap.NewNop())
	coll := memory.New()

	chunks := testChunks(10)
	chunks[7].Text = "this chunk is poison and fails the batch entirely"

	count, err := ix.Index(context.Background(), chunks, fakeProvider{}, coll, "doc-1")
	require.Error(t, err)

	var upstreamErr *entity.UpstreamProviderError
	assert.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, coll.Len(), "partial index must not be committed")
}

func TestIndex_EmptyChunks(t *testing.T) {
	ix := New(zap.NewNop())
	coll := memory.New()

	_, err := ix.Index(context.Background(), nil, fakeProvider{}, coll, "doc-1")
	assert.ErrorIs(t, err, entity.ErrEmptyContent)
}
