package source

import (
	"context"

	"github.com/askbase/knowledge-backend/internal/entity"
)

type IngestUsecase interface {
	IngestFile(ctx context.Context, caller entity.Caller, filename string, content []byte) (*entity.IngestResponse, error)
	IngestWeb(ctx context.Context, caller entity.Caller, sourceName, url string, page []byte) (*entity.IngestResponse, error)
	IngestAudio(ctx context.Context, caller entity.Caller, req *entity.IngestAudioRequest) (*entity.IngestResponse, error)
	IngestImage(ctx context.Context, caller entity.Caller, sourceName, description string, extractedText bool) (*entity.IngestResponse, error)
	DeleteSource(ctx context.Context, source string) (int, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
