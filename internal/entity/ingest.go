package entity

// ExtractedContent is the raw text pulled out of an uploaded file before
// chunking. PageCount drives per-page metering for documents.
type ExtractedContent struct {
	Text      string
	PageCount int
}

// IngestRequest describes one source to ingest.
type IngestRequest struct {
	SourceName string
	SourceType SourceType
	Content    []byte
	URL        *string // set for web sources
}

// IngestAudioRequest describes an audio or video upload that still needs
// transcription.
type IngestAudioRequest struct {
	SourceName string
	SourceType SourceType
	Audio      []byte
}

// IngestResponse reports what was indexed.
type IngestResponse struct {
	SourceName   string       `json:"source_name"`
	SourceType   SourceType   `json:"source_type"`
	ChunksStored int          `json:"chunks_stored"`
	DocumentID   string       `json:"document_id"`
	Mode         KeySource    `json:"mode"`
	Credits      *CreditsInfo `json:"credits,omitempty"`
}

// TranscriptionResult is what the speech-to-text service returns for one
// audio file.
type TranscriptionResult struct {
	Segments        []TranscriptSegment `json:"segments"`
	DurationSeconds float64             `json:"duration_seconds"`
}
