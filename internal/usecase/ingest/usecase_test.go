package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/askbase/knowledge-backend/internal/chunker"
	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/indexer"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

type fakeFactory struct{}

func (fakeFactory) ForKey(string) provider.Provider { return fakeProvider{} }

// fakeResolver records resolve and meter calls.
type fakeResolver struct {
	cred        *entity.CredentialContext
	resolveErr  error
	creditsInfo *entity.CreditsInfo

	resolved []credits.Request
	metered  []entity.CreditAction
}

func (f *fakeResolver) Resolve(_ context.Context, req credits.Request) (*entity.CredentialContext, error) {
	f.resolved = append(f.resolved, req)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.cred, nil
}

func (f *fakeResolver) Meter(_ context.Context, cred *entity.CredentialContext, _ string, action entity.CreditAction, _ map[string]any) *entity.CreditsInfo {
	if !cred.Metered() {
		return nil
	}
	f.metered = append(f.metered, action)
	return f.creditsInfo
}

type fakeTranscriber struct {
	result *entity.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (*entity.TranscriptionResult, error) {
	return f.result, f.err
}

func byokCred() *entity.CredentialContext {
	return &entity.CredentialContext{KeySource: entity.KeySourceBYOK, ResolvedKey: "sk-user"}
}

func creditsCred(cost int64) *entity.CredentialContext {
	return &entity.CredentialContext{KeySource: entity.KeySourceCredits, ResolvedKey: "sk-server", CostInCredits: cost}
}

func newTestUsecase(resolver *fakeResolver, transcriber Transcriber, coll *memory.Collection) *Usecase {
	return NewUsecase(
		chunker.New(chunker.DefaultTargetSize),
		indexer.New(zap.NewNop()),
		transcriber,
		resolver,
		fakeFactory{},
		coll,
		zap.NewNop(),
	)
}

func strptr(s string) *string { return &s }

func TestIngestFile_PlainText(t *testing.T) {
	resolver := &fakeResolver{cred: byokCred()}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	caller := entity.Caller{ProviderKey: "sk-user"}
	resp, err := uc.IngestFile(context.Background(), caller, "my notes.txt", []byte("The product launched in March.\n\nIt reached ten thousand users by June of the same year."))
	require.NoError(t, err)

	assert.Equal(t, "my_notes.txt", resp.SourceName)
	assert.Equal(t, entity.SourceTypeDocument, resp.SourceType)
	assert.Equal(t, entity.KeySourceBYOK, resp.Mode)
	assert.NotEmpty(t, resp.DocumentID)
	assert.Nil(t, resp.Credits)
	assert.Equal(t, resp.ChunksStored, coll.Len())
	assert.Positive(t, resp.ChunksStored)

	require.Len(t, resolver.resolved, 1)
	assert.Equal(t, entity.ActionPageUpload, resolver.resolved[0].Action)
	assert.Equal(t, int64(1), resolver.resolved[0].Quantity)
}

func TestIngestFile_InsufficientCreditsBlocksBeforeEmbedding(t *testing.T) {
	resolver := &fakeResolver{resolveErr: &entity.InsufficientCreditsError{Needed: 3, Available: 2}}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	_, err := uc.IngestFile(context.Background(), entity.Caller{UserID: strptr("u1")}, "doc.txt", []byte("Some perfectly valid document content that never gets embedded."))

	var insufficient *entity.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, coll.Len())
	assert.Empty(t, resolver.metered)
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	resolver := &fakeResolver{cred: byokCred()}
	uc := newTestUsecase(resolver, nil, memory.New())

	_, err := uc.IngestFile(context.Background(), entity.Caller{}, "archive.zip", []byte("data"))

	var validationErr *entity.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, resolver.resolved)
}

func TestIngestWeb_ChunksCarryURL(t *testing.T) {
	resolver := &fakeResolver{cred: byokCred()}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	page := []byte("<html><body><h1>Pricing</h1><p>Plans start at ten dollars per month and include every feature.</p></body></html>")
	resp, err := uc.IngestWeb(context.Background(), entity.Caller{ProviderKey: "sk-user"}, "pricing page", "https://example.com/pricing", page)
	require.NoError(t, err)

	assert.Equal(t, entity.SourceTypeWeb, resp.SourceType)
	assert.Positive(t, resp.ChunksStored)

	results, err := coll.Query(context.Background(), []float32{1, 1, 0}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.NotNil(t, results[0].Payload.URL)
	assert.Equal(t, "https://example.com/pricing", *results[0].Payload.URL)
}

func TestIngestAudio_MetersStartedMinutes(t *testing.T) {
	transcriber := &fakeTranscriber{result: &entity.TranscriptionResult{
		Segments: []entity.TranscriptSegment{
			{Text: "The migration finished without data loss and the team moved on to the next milestone.", Start: 0, Duration: 75},
			{Text: "A follow-up audit confirmed that every record was copied and verified against the source.", Start: 75, Duration: 75},
		},
		DurationSeconds: 150,
	}}
	resolver := &fakeResolver{cred: creditsCred(6), creditsInfo: &entity.CreditsInfo{Used: 6, Remaining: 4}}
	coll := memory.New()
	uc := newTestUsecase(resolver, transcriber, coll)

	resp, err := uc.IngestAudio(context.Background(), entity.Caller{UserID: strptr("u1")}, &entity.IngestAudioRequest{
		SourceName: "standup.mp3",
		SourceType: entity.SourceTypeAudio,
		Audio:      []byte("audio-bytes"),
	})
	require.NoError(t, err)

	require.Len(t, resolver.resolved, 1)
	assert.Equal(t, entity.ActionTranscriptionMinute, resolver.resolved[0].Action)
	assert.Equal(t, int64(3), resolver.resolved[0].Quantity) // 150s rounds up to 3 started minutes

	require.Len(t, resolver.metered, 1)
	assert.Equal(t, entity.ActionTranscriptionMinute, resolver.metered[0])
	require.NotNil(t, resp.Credits)
	assert.Equal(t, int64(6), resp.Credits.Used)
	assert.Equal(t, entity.KeySourceCredits, resp.Mode)
}

func TestIngestAudio_RejectsNonTranscriptType(t *testing.T) {
	uc := newTestUsecase(&fakeResolver{cred: byokCred()}, &fakeTranscriber{}, memory.New())

	_, err := uc.IngestAudio(context.Background(), entity.Caller{}, &entity.IngestAudioRequest{
		SourceName: "doc.txt",
		SourceType: entity.SourceTypeDocument,
		Audio:      []byte("bytes"),
	})

	var validationErr *entity.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestIngestImage_SingleChunk(t *testing.T) {
	resolver := &fakeResolver{cred: byokCred()}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	resp, err := uc.IngestImage(context.Background(), entity.Caller{ProviderKey: "sk-user"}, "diagram.png",
		"An architecture diagram showing the ingestion service feeding the vector store.", false)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ChunksStored)
	assert.Equal(t, entity.SourceTypeImage, resp.SourceType)
	require.Len(t, resolver.resolved, 1)
	assert.Equal(t, entity.ActionImageIngest, resolver.resolved[0].Action)
}

func TestDeleteSource(t *testing.T) {
	resolver := &fakeResolver{cred: byokCred()}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	_, err := uc.IngestFile(context.Background(), entity.Caller{}, "notes.txt", []byte("Enough content here to produce at least one stored chunk after filtering."))
	require.NoError(t, err)

	deleted, err := uc.DeleteSource(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Positive(t, deleted)
	assert.Equal(t, 0, coll.Len())

	_, err = uc.DeleteSource(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, entity.ErrSourceNotFound)
}

func TestIngest_EmbedFailureSkipsMetering(t *testing.T) {
	resolver := &fakeResolver{cred: creditsCred(1)}
	coll := memory.New()
	uc := newTestUsecase(resolver, nil, coll)

	_, err := uc.IngestFile(context.Background(), entity.Caller{UserID: strptr("u1")}, "bad.txt",
		[]byte("This document mentions poison somewhere in its body so embedding fails."))

	require.Error(t, err)
	var upstream *entity.UpstreamProviderError
	assert.True(t, errors.As(err, &upstream))
	assert.Equal(t, 0, coll.Len())
	assert.Empty(t, resolver.metered)
}
