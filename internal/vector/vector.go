package vector

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/entity"
)

// Payload is the metadata stored alongside each embedding. Optional fields
// are nil when they do not apply to the source type.
type Payload struct {
	Text       string
	Source     string
	SourceType string
	ChunkIndex int
	DocumentID *string
	URL        *string
	StartTime  *float64
	EndTime    *float64
}

// Point is one embedded chunk ready for upsert. Created at ingestion, never
// mutated, deleted only by explicit source removal.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// Collection is the external nearest-neighbor store.
type Collection interface {
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vec []float32, topK int) ([]SearchResult, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// PayloadFromChunk maps a chunk and its owning document onto the stored
// metadata shape.
func PayloadFromChunk(c entity.Chunk, documentID *string) Payload {
	return Payload{
		Text:       c.Text,
		Source:     c.SourceName,
		SourceType: string(c.SourceType),
		ChunkIndex: c.OrdinalIndex,
		DocumentID: documentID,
		URL:        c.Provenance.URL,
		StartTime:  c.Provenance.StartTime,
		EndTime:    c.Provenance.EndTime,
	}
}

// MatchFromResult converts a search hit back into the retrieval shape.
func MatchFromResult(r SearchResult, searchOrder int) entity.RetrievalMatch {
	return entity.RetrievalMatch{
		Text:        r.Payload.Text,
		SourceName:  r.Payload.Source,
		SourceType:  entity.SourceType(r.Payload.SourceType),
		ChunkIndex:  r.Payload.ChunkIndex,
		DocumentID:  r.Payload.DocumentID,
		URL:         r.Payload.URL,
		StartTime:   r.Payload.StartTime,
		EndTime:     r.Payload.EndTime,
		Score:       r.Score,
		SearchOrder: searchOrder,
	}
}
