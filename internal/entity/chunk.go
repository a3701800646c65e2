package entity

import "fmt"

type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeWeb      SourceType = "web"
	SourceTypeAudio    SourceType = "audio"
	SourceTypeVideo    SourceType = "video"
	SourceTypeImage    SourceType = "image"
)

func (st SourceType) Validate() error {
	switch st {
	case SourceTypeDocument, SourceTypeWeb, SourceTypeAudio, SourceTypeVideo, SourceTypeImage:
		return nil
	default:
		return fmt.Errorf("unknown source type: %s", st)
	}
}

// IsTranscript reports whether chunks of this source carry time offsets.
func (st SourceType) IsTranscript() bool {
	return st == SourceTypeAudio || st == SourceTypeVideo
}

// Provenance locates a chunk inside its original source. Exactly the fields
// matching the source type are set; the rest stay nil.
type Provenance struct {
	PageStart *int     `json:"page_start,omitempty"`
	PageEnd   *int     `json:"page_end,omitempty"`
	URL       *string  `json:"url,omitempty"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
}

// Chunk is a bounded fragment of source content. Immutable once produced by
// the chunker; the indexer consumes it as-is.
type Chunk struct {
	Text                string     `json:"text"`
	SourceName          string     `json:"source_name"`
	SourceType          SourceType `json:"source_type"`
	OrdinalIndex        int        `json:"ordinal_index"`
	TotalChunksInSource int        `json:"total_chunks_in_source"`
	Heading             bool       `json:"heading,omitempty"`
	ExtractedText       *bool      `json:"extracted_text,omitempty"`
	Provenance          Provenance `json:"provenance"`
}

// TranscriptSegment is one timed piece of an audio or video transcript as
// delivered by the transcription service.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func (s TranscriptSegment) End() float64 {
	return s.Start + s.Duration
}
