package retriever

import (
	"fmt"
	"strings"
	"testing"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(source string, score float32, order int) entity.RetrievalMatch {
	return entity.RetrievalMatch{
		Text:        fmt.Sprintf("%s match %d with a reasonably long payload body", source, order),
		SourceName:  source,
		SourceType:  entity.SourceTypeDocument,
		Score:       score,
		SearchOrder: order,
	}
}

func TestNormalizeSource(t *testing.T) {
	assert.Equal(t, "doc.pdf", NormalizeSource("Doc.PDF "))
	assert.Equal(t, "doc.pdf", NormalizeSource("doc.pdf"))
	// Idempotent
	assert.Equal(t, NormalizeSource("Doc.PDF "), NormalizeSource(NormalizeSource("Doc.PDF ")))
}

func TestIsSimpleQuestion(t *testing.T) {
	assert.True(t, IsSimpleQuestion("What is X?"))
	assert.False(t, IsSimpleQuestion("compare the two"))
	assert.False(t, IsSimpleQuestion("Analyze this please"))
	assert.False(t, IsSimpleQuestion("what do ALL DOCUMENTS say about it"))
	assert.False(t, IsSimpleQuestion(strings.Repeat("why ", 15)))

	// Deterministic: same input, same answer.
	for i := 0; i < 3; i++ {
		assert.True(t, IsSimpleQuestion("What is X?"))
		assert.Equal(t, 5, TargetChunks("What is X?"))
	}
}

func TestTargetChunks(t *testing.T) {
	assert.Equal(t, 5, TargetChunks("What is X?"))
	assert.Equal(t, 10, TargetChunks("Please compare the architecture sections across the sources"))
}

// A short question without trigger keywords over 2 sources with 3 matches
// each selects 2 per source, sorted by score descending.
func TestSelectDiverse_SimpleTwoSources(t *testing.T) {
	question := "What is X?"
	require.Less(t, len(question), 50)

	matches := []entity.RetrievalMatch{
		match("a.pdf", 0.91, 0),
		match("b.pdf", 0.88, 1),
		match("a.pdf", 0.82, 2),
		match("b.pdf", 0.79, 3),
		match("a.pdf", 0.60, 4),
		match("b.pdf", 0.55, 5),
	}

	selected := SelectDiverse(matches, question)
	require.Len(t, selected, 4)

	// Sorted by score descending.
	for i := 1; i < len(selected); i++ {
		assert.GreaterOrEqual(t, selected[i-1].Score, selected[i].Score)
	}

	perSource := map[string]int{}
	for _, m := range selected {
		perSource[NormalizeSource(m.SourceName)]++
	}
	assert.Equal(t, 2, perSource["a.pdf"])
	assert.Equal(t, 2, perSource["b.pdf"])
}

func TestGroupBySource_CaseInsensitive(t *testing.T) {
	matches := []entity.RetrievalMatch{
		match("Doc.PDF ", 0.9, 0),
		match("doc.pdf", 0.8, 1),
	}

	groups := groupBySource(matches)
	require.Len(t, groups, 1)
	// First-seen casing is retained for display.
	assert.Equal(t, "Doc.PDF ", groups[0].DisplayName)
	assert.Len(t, groups[0].Matches, 2)
}

func TestSelectDiverse_BackfillIgnoresFairness(t *testing.T) {
	question := "Please analyze the failure modes described in these documents"
	require.False(t, IsSimpleQuestion(question))

	// Source a dominates the pool by score; source b has a single weak
	// match. Complex floor gives b its fair share, then backfill follows
	// pure relevance back into a.
	var matches []entity.RetrievalMatch
	for i := 0; i < 9; i++ {
		matches = append(matches, match("a.pdf", 0.9-float32(i)*0.01, i))
	}
	matches = append(matches, match("b.pdf", 0.3, 9))

	selected := SelectDiverse(matches, question)
	require.Len(t, selected, 10)

	perSource := map[string]int{}
	for _, m := range selected {
		perSource[NormalizeSource(m.SourceName)]++
	}
	assert.Equal(t, 9, perSource["a.pdf"])
	assert.Equal(t, 1, perSource["b.pdf"])
}

func TestSelectDiverse_ComplexFloorIsTwo(t *testing.T) {
	question := "How do the deployment and rollback procedures interact with monitoring?"
	require.False(t, IsSimpleQuestion(question))

	matches := []entity.RetrievalMatch{
		match("a.pdf", 0.9, 0),
		match("a.pdf", 0.85, 1),
		match("a.pdf", 0.80, 2),
		match("b.pdf", 0.70, 3),
		match("b.pdf", 0.65, 4),
		match("c.pdf", 0.60, 5),
		match("c.pdf", 0.55, 6),
	}

	selected := SelectDiverse(matches, question)

	perSource := map[string]int{}
	for _, m := range selected {
		perSource[NormalizeSource(m.SourceName)]++
	}
	// Every source contributes at least min(quota=2, available).
	assert.GreaterOrEqual(t, perSource["a.pdf"], 2)
	assert.GreaterOrEqual(t, perSource["b.pdf"], 2)
	assert.GreaterOrEqual(t, perSource["c.pdf"], 2)
}

func TestSelectDiverse_SizeNeverExceedsPool(t *testing.T) {
	matches := []entity.RetrievalMatch{
		match("a.pdf", 0.9, 0),
		match("b.pdf", 0.8, 1),
	}

	selected := SelectDiverse(matches, "Analyze everything in depth across sources")
	assert.Len(t, selected, 2)
}

func TestSelectDiverse_Empty(t *testing.T) {
	assert.Nil(t, SelectDiverse(nil, "What is X?"))
}

func TestSelectDiverse_TieBreakBySearchOrder(t *testing.T) {
	a := match("a.pdf", 0.8, 0)
	b := match("b.pdf", 0.8, 1)

	selected := SelectDiverse([]entity.RetrievalMatch{b, a}, "What is X?")
	require.Len(t, selected, 2)
	assert.Equal(t, "a.pdf", selected[0].SourceName)
}
