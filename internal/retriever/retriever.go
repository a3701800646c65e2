package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	topKDefault = 15

	// topKFiltered: a larger pool compensates for post-retrieval source
	// filtering the index cannot express natively.
	topKFiltered = 30

	// minMatchChars drops trivially short payloads from the pool.
	minMatchChars = 50
)

// QueryExpander rewrites a question before embedding. External collaborator;
// the default keeps the question as-is.
type QueryExpander interface {
	Expand(ctx context.Context, question string) (string, error)
}

type noopExpander struct{}

func (noopExpander) Expand(_ context.Context, question string) (string, error) {
	return question, nil
}

// NoopExpander returns the identity query expander.
func NoopExpander() QueryExpander { return noopExpander{} }

// Retriever embeds a question, searches the vector collection and applies
// diverse context selection.
type Retriever struct {
	expander QueryExpander
	logger   *zap.Logger
}

func New(expander QueryExpander, logger *zap.Logger) *Retriever {
	if expander == nil {
		expander = noopExpander{}
	}
	return &Retriever{expander: expander, logger: logger}
}

// Retrieve runs the full query-time pipeline. Returns
// entity.ErrNoRelevantContext when nothing survives filtering, so callers
// can short-circuit with a canned response before composing any prompt.
func (r *Retriever) Retrieve(
	ctx context.Context,
	question string,
	sourceFilters []string,
	prov provider.Provider,
	collection vector.Collection,
) ([]entity.RetrievalMatch, error) {
	expanded, err := r.expander.Expand(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("expand question: %w", err)
	}

	embedding, err := prov.Embed(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	topK := topKDefault
	if len(sourceFilters) > 0 {
		topK = topKFiltered
	}

	results, err := collection.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	pool := filterMatches(results, sourceFilters)

	ctxzap.Debug(ctx, "retrieval pool built",
		zap.Int("raw_results", len(results)),
		zap.Int("pool_size", len(pool)),
		zap.Int("top_k", topK),
		zap.Bool("filtered", len(sourceFilters) > 0),
	)

	if len(pool) == 0 {
		return nil, entity.ErrNoRelevantContext
	}

	selected := SelectDiverse(pool, question)

	ctxzap.Info(ctx, "context selected",
		zap.Int("selected", len(selected)),
		zap.Bool("simple_question", IsSimpleQuestion(question)),
	)

	return selected, nil
}

// filterMatches drops unusable hits and applies the optional source-name
// filter. The filter match is a bidirectional substring check on normalized
// names, accommodating minor filename variants between ingestion and query.
func filterMatches(results []vector.SearchResult, sourceFilters []string) []entity.RetrievalMatch {
	normFilters := make([]string, 0, len(sourceFilters))
	for _, f := range sourceFilters {
		if norm := NormalizeSource(f); norm != "" {
			normFilters = append(normFilters, norm)
		}
	}

	var pool []entity.RetrievalMatch
	for i, res := range results {
		if len(strings.TrimSpace(res.Payload.Text)) < minMatchChars {
			continue
		}
		if len(normFilters) > 0 && !matchesAnyFilter(res.Payload.Source, normFilters) {
			continue
		}
		pool = append(pool, vector.MatchFromResult(res, i))
	}
	return pool
}

func matchesAnyFilter(source string, normFilters []string) bool {
	norm := NormalizeSource(source)
	for _, f := range normFilters {
		if strings.Contains(norm, f) || strings.Contains(f, norm) {
			return true
		}
	}
	return false
}
