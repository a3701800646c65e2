package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/askbase/knowledge-backend/internal/vector"
)

// Collection is an in-process vector.Collection used in tests and mock mode.
// Brute-force cosine similarity over all stored points.
type Collection struct {
	mu     sync.RWMutex
	points map[string]vector.Point
}

func New() *Collection {
	return &Collection{points: make(map[string]vector.Point)}
}

func (c *Collection) Upsert(_ context.Context, points []vector.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range points {
		c.points[p.ID] = p
	}
	return nil
}

func (c *Collection) Query(_ context.Context, vec []float32, topK int) ([]vector.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]vector.SearchResult, 0, len(c.points))
	for _, p := range c.points {
		results = append(results, vector.SearchResult{
			ID:      p.ID,
			Score:   cosine(vec, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (c *Collection) DeleteBySource(_ context.Context, source string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for id, p := range c.points {
		if p.Payload.Source == source {
			delete(c.points, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored points.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ vector.Collection = (*Collection)(nil)
