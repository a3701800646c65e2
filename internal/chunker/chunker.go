package chunker

import (
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

const (
	// DefaultTargetSize is the character budget per chunk. Characters are
	// used instead of tokens to keep chunking off the provider hot path.
	DefaultTargetSize = 1500

	// MinChunkChars is the smallest payload worth indexing. Shorter
	// fragments add retrieval noise without informative content.
	MinChunkChars = 50

	// extendThreshold: a transcript chunk under this share of the target
	// keeps extending past the size limit rather than cutting at an
	// unnatural boundary.
	extendThreshold = 0.7
)

// Chunker splits raw per-source content into bounded, provenance-tagged
// fragments. The strategy is chosen by source type.
type Chunker struct {
	targetSize int
}

func New(targetSize int) *Chunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &Chunker{targetSize: targetSize}
}

func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// finalize stamps ordinal indices and the per-source total, and drops
// fragments below the minimum viable length.
func finalize(chunks []entity.Chunk) []entity.Chunk {
	kept := make([]entity.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(strings.TrimSpace(c.Text)) < MinChunkChars {
			continue
		}
		kept = append(kept, c)
	}
	for i := range kept {
		kept[i].OrdinalIndex = i
		kept[i].TotalChunksInSource = len(kept)
	}
	return kept
}
