package entity

// RetrievalMatch is a chunk returned by the vector collection together with
// its similarity score (higher is better). Lives only within one query.
type RetrievalMatch struct {
	Text        string     `json:"text"`
	SourceName  string     `json:"source_name"`
	SourceType  SourceType `json:"source_type"`
	ChunkIndex  int        `json:"chunk_index"`
	DocumentID  *string    `json:"document_id,omitempty"`
	URL         *string    `json:"url,omitempty"`
	StartTime   *float64   `json:"start_time,omitempty"`
	EndTime     *float64   `json:"end_time,omitempty"`
	Score       float32    `json:"score"`
	SearchOrder int        `json:"-"` // position in the raw search result, used for tie-breaks
}

// SourceGroup collects the matches of one normalized source. DisplayName keeps
// the first-seen original casing.
type SourceGroup struct {
	DisplayName string
	Matches     []RetrievalMatch
}

type QuestionIntent string

const (
	IntentFactual    QuestionIntent = "factual"
	IntentSynthesis  QuestionIntent = "synthesis"
	IntentMetaSource QuestionIntent = "meta_source"
)
