package entity

import "time"

type KeySource string

const (
	KeySourceBYOK    KeySource = "byok"
	KeySourceTeam    KeySource = "team"
	KeySourceCredits KeySource = "credits"
)

// CreditAction names a metered operation. Costs are looked up per action and
// multiplied by the measured quantity for per-unit actions.
type CreditAction string

const (
	ActionQuestion            CreditAction = "question"
	ActionPageUpload          CreditAction = "page_upload"
	ActionTranscriptionMinute CreditAction = "transcription_minute"
	ActionImageIngest         CreditAction = "image_ingest"
)

// Caller identifies who is paying for a request. UserID is nil for
// anonymous callers; ProviderKey is a caller-supplied key, if any.
type Caller struct {
	UserID      *string
	ProviderKey string
}

// CredentialContext is the outcome of the credential waterfall. Created once
// per request and read-only afterwards.
type CredentialContext struct {
	KeySource     KeySource
	ResolvedKey   string
	TeamName      *string
	CostInCredits int64
}

// Metered reports whether the request must be settled against the credit
// ledger after it succeeds.
func (c *CredentialContext) Metered() bool {
	return c.KeySource == KeySourceCredits
}

// LedgerEntry is one append-only credit movement. Negative delta for
// deductions.
type LedgerEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Delta     int64          `json:"delta"`
	Reason    string         `json:"reason"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DeductionResult reports the outcome of an atomic balance decrement.
type DeductionResult struct {
	Success bool
	Balance int64
}

type TeamKey struct {
	HasKey   bool
	Key      string
	TeamName string
}
