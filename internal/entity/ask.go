package entity

import "time"

// AskRequest is the question-answering call body.
type AskRequest struct {
	Question string   `json:"question"`
	Sources  []string `json:"sources,omitempty"` // optional source-name filter
}

// SourceRef is one cited fragment in the answer. Number matches the [n]
// citation marker rendered into the prompt context.
type SourceRef struct {
	Number    int     `json:"number"`
	Source    string  `json:"source"`
	Relevance float32 `json:"relevance"`
	Timestamp *string `json:"timestamp,omitempty"`
	AudioID   *string `json:"audio_id,omitempty"`
}

type CreditsInfo struct {
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// AskResponse is the response envelope for a question-answering call.
type AskResponse struct {
	Answer         string       `json:"answer"`
	Sources        []SourceRef  `json:"sources"`
	Credits        *CreditsInfo `json:"credits,omitempty"`
	Mode           KeySource    `json:"mode"`
	TeamName       *string      `json:"team_name,omitempty"`
	ConversationID *string      `json:"conversation_id,omitempty"`
}

// ExportFormat selects the file format for a conversation export.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatPDF      ExportFormat = "pdf"
	FormatDOCX     ExportFormat = "docx"
)

// Conversation is a stored question/answer record. Persisting it is
// best-effort: a write failure never fails the answer.
type Conversation struct {
	ID        string      `json:"id"`
	UserID    *string     `json:"user_id,omitempty"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	CreatedAt time.Time   `json:"created_at"`
}
