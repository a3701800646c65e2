package prompt

import (
	"fmt"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/retriever"
)

const (
	temperaturePrecise   = 0.1
	temperatureSynthesis = 0.3

	answerMaxTokens = 1024
)

const factualSystemPrompt = `You are a precise assistant answering questions strictly from the provided context fragments.
Rules:
- Use only the information in the context. Never use outside knowledge.
- Cite fragments with their bracketed numbers, e.g. [1], wherever you rely on them.
- If the context does not contain the answer, say so plainly.`

const synthesisSystemPrompt = `You are an analytical assistant synthesizing an answer from the provided context fragments.
Rules:
- Use only the information in the context. Never use outside knowledge.
- You may connect and contrast information across fragments, including fragments from different sources.
- Cite fragments with their bracketed numbers, e.g. [1], wherever you rely on them.
- Structure longer answers with short paragraphs.
- If the context does not contain enough material, say what is missing.`

const metaSourceSystemPrompt = `You are a precise assistant describing where information in the user's knowledge base comes from.
Rules:
- Answer using only the provided context fragments and their source annotations.
- Name the sources and, where present, their pages, URLs or timestamps.
- Cite fragments with their bracketed numbers, e.g. [1].`

// Prompt is a ready-to-send completion request shape.
type Prompt struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// webFocusKeywords trigger the per-type weighting hint for web sources.
var webFocusKeywords = []string{"link", "url", "webpage", "website"}

// Compose assembles a grounded prompt for the classified intent. Citation
// indices rendered into the context are 1-based and must match the indices
// of SourceRefs for the same match set.
func Compose(intent entity.QuestionIntent, matches []entity.RetrievalMatch, question string) Prompt {
	var system string
	temperature := temperaturePrecise

	switch intent {
	case entity.IntentSynthesis:
		system = synthesisSystemPrompt
		temperature = temperatureSynthesis
	case entity.IntentMetaSource:
		system = metaSourceSystemPrompt
	default:
		system = factualSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(sourceSummary(matches, question))
	sb.WriteString("\n\nContext:\n\n")

	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderFragment(i+1, m))
	}

	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)

	return Prompt{
		SystemPrompt: system,
		UserPrompt:   sb.String(),
		Temperature:  temperature,
		MaxTokens:    answerMaxTokens,
	}
}

// renderFragment renders one match as "[n] From <name><annotations>: <text>".
func renderFragment(number int, m entity.RetrievalMatch) string {
	var ann strings.Builder
	if m.SourceType == entity.SourceTypeWeb && m.URL != nil {
		fmt.Fprintf(&ann, " (%s)", *m.URL)
	}
	if m.SourceType.IsTranscript() && m.StartTime != nil {
		fmt.Fprintf(&ann, " (at %s)", FormatTimestamp(*m.StartTime))
	}
	return fmt.Sprintf("[%d] From %s%s: %s", number, m.SourceName, ann.String(), m.Text)
}

// sourceSummary describes the fragment set ahead of the context, with a
// weighting hint when the question targets web content.
func sourceSummary(matches []entity.RetrievalMatch, question string) string {
	names := make([]string, 0, len(matches))
	seen := map[string]bool{}
	hasWeb := false
	for _, m := range matches {
		if m.SourceType == entity.SourceTypeWeb {
			hasWeb = true
		}
		key := retriever.NormalizeSource(m.SourceName)
		if !seen[key] {
			seen[key] = true
			names = append(names, m.SourceName)
		}
	}

	summary := fmt.Sprintf("You have %d context fragment(s) from %d source(s): %s.",
		len(matches), len(names), strings.Join(names, ", "))

	if hasWeb && asksAboutWeb(question) {
		summary += " The question is about a link, so focus on the web source."
	}
	return summary
}

func asksAboutWeb(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range webFocusKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// SourceRefs builds the citation list returned alongside the answer. The
// numbering matches the context rendered by Compose for the same matches.
func SourceRefs(matches []entity.RetrievalMatch) []entity.SourceRef {
	refs := make([]entity.SourceRef, 0, len(matches))
	for i, m := range matches {
		ref := entity.SourceRef{
			Number:    i + 1,
			Source:    m.SourceName,
			Relevance: m.Score,
		}
		if m.SourceType.IsTranscript() {
			if m.StartTime != nil {
				ts := FormatTimestamp(*m.StartTime)
				ref.Timestamp = &ts
			}
			ref.AudioID = m.DocumentID
		}
		refs = append(refs, ref)
	}
	return refs
}

// FormatTimestamp renders seconds as m:ss, or h:mm:ss past one hour.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
