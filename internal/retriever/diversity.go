package retriever

import (
	"sort"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

const (
	// maxContextTokenBudget caps the total context handed to the prompt
	// composer; avgTokensPerChunk is the working estimate per fragment.
	maxContextTokenBudget = 5000
	avgTokensPerChunk     = 500

	simpleTargetCap  = 5
	complexTargetCap = 10

	// simpleQuestionMaxLen: shorter questions without breadth keywords
	// need less context.
	simpleQuestionMaxLen = 50
)

// breadthKeywords mark a question as complex regardless of length.
var breadthKeywords = []string{"compare", "analyze", "all documents"}

// NormalizeSource collapses case and whitespace variants of a source name
// into one grouping key.
func NormalizeSource(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsSimpleQuestion is a pure, deterministic heuristic: short questions
// without breadth keywords get a smaller context window.
func IsSimpleQuestion(question string) bool {
	if len(question) >= simpleQuestionMaxLen {
		return false
	}
	lower := strings.ToLower(question)
	for _, kw := range breadthKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// TargetChunks computes the bounded context size for a question.
func TargetChunks(question string) int {
	maxChunks := maxContextTokenBudget / avgTokensPerChunk
	if IsSimpleQuestion(question) {
		return min(simpleTargetCap, maxChunks)
	}
	return min(complexTargetCap, maxChunks)
}

// SelectDiverse turns a raw match pool into a bounded, source-balanced
// context set. Each source gets at least a floor fair share; once the floor
// allocation is satisfied, backfill for complex questions follows total
// relevance and deliberately ignores per-source fairness.
func SelectDiverse(matches []entity.RetrievalMatch, question string) []entity.RetrievalMatch {
	if len(matches) == 0 {
		return nil
	}

	groups := groupBySource(matches)
	simple := IsSimpleQuestion(question)
	target := TargetChunks(question)

	floorFairShare := 2
	if simple {
		floorFairShare = 1
	}
	quota := max(floorFairShare, target/len(groups))

	type selectedKey struct {
		text   string
		source string
	}
	seen := make(map[selectedKey]bool)
	var selected []entity.RetrievalMatch

	take := func(m entity.RetrievalMatch) {
		key := selectedKey{text: m.Text, source: NormalizeSource(m.SourceName)}
		if seen[key] {
			return
		}
		seen[key] = true
		selected = append(selected, m)
	}

	for _, g := range groups {
		byScore := sortByScore(g.Matches)
		for i := 0; i < len(byScore) && i < quota; i++ {
			take(byScore[i])
		}
	}

	// Backfill from the full pool once the fairness floor is satisfied.
	if !simple && len(selected) < target {
		for _, m := range sortByScore(matches) {
			if len(selected) >= target {
				break
			}
			take(m)
		}
	}

	selected = sortByScore(selected)
	if len(selected) > target {
		selected = selected[:target]
	}
	return selected
}

// groupBySource buckets matches by normalized source name, retaining the
// first-seen original casing for display and the first-seen group order.
func groupBySource(matches []entity.RetrievalMatch) []entity.SourceGroup {
	index := make(map[string]int)
	var groups []entity.SourceGroup

	for _, m := range matches {
		key := NormalizeSource(m.SourceName)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, entity.SourceGroup{DisplayName: m.SourceName})
		}
		groups[i].Matches = append(groups[i].Matches, m)
	}
	return groups
}

// sortByScore returns a copy ordered by score descending, ties broken by
// original search order.
func sortByScore(matches []entity.RetrievalMatch) []entity.RetrievalMatch {
	out := make([]entity.RetrievalMatch, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SearchOrder < out[j].SearchOrder
	})
	return out
}
