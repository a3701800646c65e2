package ingest

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*entity.TranscriptionResult, error)
}

type Indexer interface {
	Index(ctx context.Context, chunks []entity.Chunk, prov provider.Provider, collection vector.Collection, documentID string) (int, error)
}

type CredentialResolver interface {
	Resolve(ctx context.Context, req credits.Request) (*entity.CredentialContext, error)
	Meter(ctx context.Context, cred *entity.CredentialContext, userID string, action entity.CreditAction, meta map[string]any) *entity.CreditsInfo
}
