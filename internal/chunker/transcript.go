package chunker

import (
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

// ChunkTranscript accumulates timed transcript segments into chunks around
// the target size, preferring to cut where the trailing segment ends a
// sentence. A chunk still under ~70% of the target keeps extending instead
// of cutting at an unnatural boundary, which avoids many tiny chunks.
func (c *Chunker) ChunkTranscript(segments []entity.TranscriptSegment, sourceName string, st entity.SourceType) ([]entity.Chunk, error) {
	var chunks []entity.Chunk
	var buf []entity.TranscriptSegment
	bufLen := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, buildTranscriptChunk(buf, sourceName, st))
		buf = nil
		bufLen = 0
	}

	minNatural := int(float64(c.targetSize) * extendThreshold)

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if bufLen > 0 && bufLen+len(text) > c.targetSize {
			if endsSentence(buf[len(buf)-1].Text) || bufLen >= minNatural {
				flush()
			}
		}
		buf = append(buf, seg)
		bufLen += len(text)
	}
	flush()

	chunks = finalize(chunks)
	if len(chunks) == 0 {
		return nil, entity.ErrEmptyContent
	}
	return chunks, nil
}

func buildTranscriptChunk(segments []entity.TranscriptSegment, sourceName string, st entity.SourceType) entity.Chunk {
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, strings.TrimSpace(s.Text))
	}

	start := segments[0].Start
	end := segments[len(segments)-1].End()

	return entity.Chunk{
		Text:       strings.Join(texts, " "),
		SourceName: sourceName,
		SourceType: st,
		Provenance: entity.Provenance{
			StartTime: &start,
			EndTime:   &end,
		},
	}
}
