package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(conv *entity.Conversation) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n%s\n", conv.Question, conv.Answer)

	if len(conv.Sources) > 0 {
		buf.WriteString("\n## Sources\n\n")
		for _, line := range sourceLines(conv.Sources) {
			buf.WriteString("- " + line + "\n")
		}
	}

	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(&buf, "\n_%s_\n", strings.TrimSpace(conv.CreatedAt.Format("2006-01-02 15:04 MST")))
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
