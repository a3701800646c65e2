package chunker

import (
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

// ChunkImage wraps the descriptive or OCR-extracted text of an image as a
// single chunk. Images are never sub-chunked.
func (c *Chunker) ChunkImage(description, sourceName string, extractedText bool) ([]entity.Chunk, error) {
	text := strings.TrimSpace(description)
	if len(text) < MinChunkChars {
		return nil, entity.ErrEmptyContent
	}

	return []entity.Chunk{{
		Text:                text,
		SourceName:          sourceName,
		SourceType:          entity.SourceTypeImage,
		OrdinalIndex:        0,
		TotalChunksInSource: 1,
		ExtractedText:       &extractedText,
	}}, nil
}
