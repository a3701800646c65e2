package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/unidoc/unioffice/document"
)

// fromDOCX pulls paragraph text out of a Word document. Heading-styled
// paragraphs keep a markdown marker so the chunker tags them; DOCX carries
// no fixed pagination, so the page count is size-estimated.
func fromDOCX(content []byte) (*entity.ExtractedContent, error) {
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	var paragraphs []string
	for _, para := range doc.Paragraphs() {
		var sb strings.Builder
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		if strings.HasPrefix(para.Style(), "Heading") {
			text = "# " + text
		}
		paragraphs = append(paragraphs, text)
	}

	if len(paragraphs) == 0 {
		return nil, entity.ErrEmptyContent
	}

	text := strings.Join(paragraphs, "\n\n")
	return &entity.ExtractedContent{
		Text:      text,
		PageCount: pageCount(text),
	}, nil
}
