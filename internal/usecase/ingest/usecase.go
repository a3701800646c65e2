package ingest

import (
	"context"
	"fmt"
	"math"

	"github.com/askbase/knowledge-backend/internal/chunker"
	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/extract"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/pkg/validator"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Usecase runs the ingestion pipeline: extract, resolve credentials for the
// measured quantity, chunk, embed and store, then settle credits. The
// credential gate runs before any embedding call so nothing is spent on a
// request that cannot be funded.
type Usecase struct {
	chunker     *chunker.Chunker
	indexer     Indexer
	transcriber Transcriber
	credentials CredentialResolver
	providers   provider.Factory
	collection  vector.Collection
	logger      *zap.Logger
}

func NewUsecase(
	chk *chunker.Chunker,
	indexer Indexer,
	transcriber Transcriber,
	credentials CredentialResolver,
	providers provider.Factory,
	collection vector.Collection,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		chunker:     chk,
		indexer:     indexer,
		transcriber: transcriber,
		credentials: credentials,
		providers:   providers,
		collection:  collection,
		logger:      logger,
	}
}

// IngestFile indexes an uploaded document. Metered per extracted page.
func (uc *Usecase) IngestFile(ctx context.Context, caller entity.Caller, filename string, content []byte) (*entity.IngestResponse, error) {
	extracted, err := extract.FromFile(filename, content)
	if err != nil {
		return nil, fmt.Errorf("extract file: %w", err)
	}

	sourceName := validator.SanitizeFilename(filename)

	cred, err := uc.credentials.Resolve(ctx, credits.Request{
		UserID:   caller.UserID,
		BYOKKey:  caller.ProviderKey,
		Action:   entity.ActionPageUpload,
		Quantity: int64(extracted.PageCount),
	})
	if err != nil {
		return nil, err
	}

	chunks, err := uc.chunker.ChunkText(extracted.Text, sourceName, entity.SourceTypeDocument, nil)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	return uc.store(ctx, caller, cred, chunks, sourceName, entity.SourceTypeDocument, entity.ActionPageUpload, map[string]any{
		"source": sourceName,
		"pages":  extracted.PageCount,
	})
}

// IngestWeb indexes a fetched web page. Metered like a document upload, with
// the page count estimated from the extracted text.
func (uc *Usecase) IngestWeb(ctx context.Context, caller entity.Caller, sourceName, url string, page []byte) (*entity.IngestResponse, error) {
	extracted, err := extract.FromHTML(page)
	if err != nil {
		return nil, fmt.Errorf("extract web page: %w", err)
	}

	cred, err := uc.credentials.Resolve(ctx, credits.Request{
		UserID:   caller.UserID,
		BYOKKey:  caller.ProviderKey,
		Action:   entity.ActionPageUpload,
		Quantity: int64(extracted.PageCount),
	})
	if err != nil {
		return nil, err
	}

	chunks, err := uc.chunker.ChunkText(extracted.Text, sourceName, entity.SourceTypeWeb, &url)
	if err != nil {
		return nil, fmt.Errorf("chunk web page: %w", err)
	}

	return uc.store(ctx, caller, cred, chunks, sourceName, entity.SourceTypeWeb, entity.ActionPageUpload, map[string]any{
		"source": sourceName,
		"url":    url,
	})
}

// IngestAudio transcribes an audio or video upload and indexes the
// timestamped transcript. Metered per started minute of audio; the duration
// is only known after transcription, so the credential gate runs between
// transcription and the first embedding call.
func (uc *Usecase) IngestAudio(ctx context.Context, caller entity.Caller, req *entity.IngestAudioRequest) (*entity.IngestResponse, error) {
	if !req.SourceType.IsTranscript() {
		return nil, entity.NewValidationError("source_type", "expected audio or video, got "+string(req.SourceType))
	}

	result, err := uc.transcriber.Transcribe(ctx, req.Audio, req.SourceName)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	minutes := int64(math.Ceil(result.DurationSeconds / 60))
	if minutes < 1 {
		minutes = 1
	}

	cred, err := uc.credentials.Resolve(ctx, credits.Request{
		UserID:   caller.UserID,
		BYOKKey:  caller.ProviderKey,
		Action:   entity.ActionTranscriptionMinute,
		Quantity: minutes,
	})
	if err != nil {
		return nil, err
	}

	chunks, err := uc.chunker.ChunkTranscript(result.Segments, req.SourceName, req.SourceType)
	if err != nil {
		return nil, fmt.Errorf("chunk transcript: %w", err)
	}

	return uc.store(ctx, caller, cred, chunks, req.SourceName, req.SourceType, entity.ActionTranscriptionMinute, map[string]any{
		"source":  req.SourceName,
		"minutes": minutes,
	})
}

// IngestImage indexes a single description chunk for an image source.
// extractedText marks whether the description is OCR output rather than a
// visual description.
func (uc *Usecase) IngestImage(ctx context.Context, caller entity.Caller, sourceName, description string, extractedText bool) (*entity.IngestResponse, error) {
	cred, err := uc.credentials.Resolve(ctx, credits.Request{
		UserID:   caller.UserID,
		BYOKKey:  caller.ProviderKey,
		Action:   entity.ActionImageIngest,
		Quantity: 1,
	})
	if err != nil {
		return nil, err
	}

	chunks, err := uc.chunker.ChunkImage(description, sourceName, extractedText)
	if err != nil {
		return nil, fmt.Errorf("chunk image description: %w", err)
	}

	return uc.store(ctx, caller, cred, chunks, sourceName, entity.SourceTypeImage, entity.ActionImageIngest, map[string]any{
		"source": sourceName,
	})
}

// DeleteSource removes every stored chunk for the named source.
func (uc *Usecase) DeleteSource(ctx context.Context, source string) (int, error) {
	deleted, err := uc.collection.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete source: %w", err)
	}
	if deleted == 0 {
		return 0, entity.ErrSourceNotFound
	}

	ctxzap.Info(ctx, "source deleted",
		zap.String("source", source),
		zap.Int("chunks_deleted", deleted),
	)

	return deleted, nil
}

// store embeds and upserts the chunks, then settles credits. Metering runs
// only after the paid action succeeded; a metering failure is logged inside
// the resolver and never fails the ingest.
func (uc *Usecase) store(
	ctx context.Context,
	caller entity.Caller,
	cred *entity.CredentialContext,
	chunks []entity.Chunk,
	sourceName string,
	sourceType entity.SourceType,
	action entity.CreditAction,
	meta map[string]any,
) (*entity.IngestResponse, error) {
	documentID := uuid.New().String()
	prov := uc.providers.ForKey(cred.ResolvedKey)

	stored, err := uc.indexer.Index(ctx, chunks, prov, uc.collection, documentID)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	ctxzap.Info(ctx, "source ingested",
		zap.String("source", sourceName),
		zap.String("source_type", string(sourceType)),
		zap.String("document_id", documentID),
		zap.Int("chunks_stored", stored),
		zap.String("key_source", string(cred.KeySource)),
	)

	var creditsInfo *entity.CreditsInfo
	if caller.UserID != nil {
		meta["document_id"] = documentID
		creditsInfo = uc.credentials.Meter(ctx, cred, *caller.UserID, action, meta)
	}

	return &entity.IngestResponse{
		SourceName:   sourceName,
		SourceType:   sourceType,
		ChunksStored: stored,
		DocumentID:   documentID,
		Mode:         cred.KeySource,
		Credits:      creditsInfo,
	}, nil
}
