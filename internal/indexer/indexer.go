package indexer

import (
	"context"
	"fmt"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// batchSize bounds the request size of a single upsert call.
	batchSize = 100

	// embedConcurrency caps the embedding fan-out per source.
	embedConcurrency = 8
)

// Indexer embeds chunks and upserts them into the vector collection. A
// source is indexed as a whole or not at all: one failed embedding aborts
// the ingestion so a source is never half searchable.
type Indexer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Indexer {
	return &Indexer{logger: logger}
}

// Index embeds every chunk concurrently, then upserts in batches. Returns
// the number of points stored.
func (ix *Indexer) Index(
	ctx context.Context,
	chunks []entity.Chunk,
	prov provider.Provider,
	collection vector.Collection,
	documentID string,
) (int, error) {
	if len(chunks) == 0 {
		return 0, entity.ErrEmptyContent
	}

	points := make([]vector.Point, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := prov.Embed(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", chunk.OrdinalIndex, err)
			}
			docID := documentID
			points[i] = vector.Point{
				ID:      uuid.New().String(),
				Vector:  vec,
				Payload: vector.PayloadFromChunk(chunk, &docID),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	ctxzap.Debug(ctx, "chunks embedded",
		zap.Int("chunk_count", len(points)),
		zap.String("document_id", documentID),
	)

	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))
		if err := collection.Upsert(ctx, points[start:end]); err != nil {
			return 0, fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}

	ctxzap.Info(ctx, "source indexed",
		zap.Int("points", len(points)),
		zap.String("document_id", documentID),
	)

	return len(points), nil
}
