package prompt

import (
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

// The keyword lists are behavior-defining: classification is substring-based
// and order-sensitive (meta-source first, then synthesis, default factual).

var metaSourcePhrases = []string{
	"where does this come from",
	"where did this come from",
	"come from",
	"comes from",
	"which document",
	"which source",
	"what source",
	"what document",
	"based on which",
}

var synthesisPhrases = []string{
	"summarize",
	"summary",
	"analyze",
	"analysis",
	"describe",
	"overview",
	"what is this",
	"tell me about",
	"explain",
}

// IsMetaQuestion reports whether the question asks where information comes
// from rather than about the content itself.
func IsMetaQuestion(question string) bool {
	lower := strings.ToLower(question)
	for _, phrase := range metaSourcePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsSynthesisTask reports whether the question asks for summarization or
// cross-fragment analysis.
func IsSynthesisTask(question string) bool {
	lower := strings.ToLower(question)
	for _, phrase := range synthesisPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Classify maps a question to its intent. Pure function of the question
// text; meta-source triggers win over synthesis triggers.
func Classify(question string) entity.QuestionIntent {
	if IsMetaQuestion(question) {
		return entity.IntentMetaSource
	}
	if IsSynthesisTask(question) {
		return entity.IntentSynthesis
	}
	return entity.IntentFactual
}
