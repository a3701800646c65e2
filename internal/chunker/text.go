package chunker

import (
	"regexp"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

var (
	paragraphSplitter = regexp.MustCompile(`\n\s*\n`)
	sentenceSplitter  = regexp.MustCompile(`(?U)([^.!?]+[.!?]+)`)
)

// paragraph is one accumulation unit of a document or web page.
type paragraph struct {
	text    string
	heading bool
	page    int
}

// ChunkText splits document or web content by paragraph boundary first,
// re-splitting oversized paragraphs by sentence. Pages are delimited by
// form-feed characters as produced by text extraction.
func (c *Chunker) ChunkText(content, sourceName string, st entity.SourceType, url *string) ([]entity.Chunk, error) {
	paragraphs := splitParagraphs(content)
	if len(paragraphs) == 0 {
		return nil, entity.ErrEmptyContent
	}

	var chunks []entity.Chunk
	var buf []paragraph
	bufLen := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, c.buildTextChunk(buf, sourceName, st, url))
		buf = nil
		bufLen = 0
	}

	for _, p := range paragraphs {
		if len(p.text) > c.targetSize {
			// A single paragraph over the limit gets its own
			// sentence-bounded chunks.
			flush()
			for _, part := range c.splitBySentence(p.text) {
				chunks = append(chunks, c.buildTextChunk(
					[]paragraph{{text: part, heading: p.heading, page: p.page}},
					sourceName, st, url,
				))
			}
			continue
		}
		if bufLen > 0 && bufLen+len(p.text) > c.targetSize {
			flush()
		}
		buf = append(buf, p)
		bufLen += len(p.text)
	}
	flush()

	chunks = finalize(chunks)
	if len(chunks) == 0 {
		return nil, entity.ErrEmptyContent
	}
	return chunks, nil
}

func (c *Chunker) buildTextChunk(parts []paragraph, sourceName string, st entity.SourceType, url *string) entity.Chunk {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.text)
	}

	chunk := entity.Chunk{
		Text:       strings.Join(texts, "\n\n"),
		SourceName: sourceName,
		SourceType: st,
		Heading:    parts[0].heading,
	}

	switch st {
	case entity.SourceTypeWeb:
		chunk.Provenance.URL = url
	case entity.SourceTypeDocument:
		first := parts[0].page
		last := parts[len(parts)-1].page
		chunk.Provenance.PageStart = &first
		chunk.Provenance.PageEnd = &last
	}
	return chunk
}

// splitBySentence cuts an oversized paragraph into sentence-bounded pieces
// that each fit the target size.
func (c *Chunker) splitBySentence(text string) []string {
	sentences := sentenceSplitter.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var parts []string
	var buf strings.Builder
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(s)+1 > c.targetSize {
			parts = append(parts, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

// splitParagraphs breaks content into paragraphs, tracking form-feed page
// boundaries and markdown-style headings.
func splitParagraphs(content string) []paragraph {
	var out []paragraph
	for pageIdx, page := range strings.Split(content, "\f") {
		for _, raw := range paragraphSplitter.Split(page, -1) {
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			out = append(out, paragraph{
				text:    text,
				heading: strings.HasPrefix(text, "#"),
				page:    pageIdx + 1,
			})
		}
	}
	return out
}
