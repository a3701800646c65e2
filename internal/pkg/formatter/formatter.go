package formatter

import (
	"fmt"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

type Formatter interface {
	Format(conv *entity.Conversation) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// sourceLines renders the cited sources as "[n] name (relevance)" lines,
// with the transcript timestamp when present.
func sourceLines(refs []entity.SourceRef) []string {
	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		line := fmt.Sprintf("[%d] %s (relevance %.2f)", ref.Number, ref.Source, ref.Relevance)
		if ref.Timestamp != nil {
			line += " at " + *ref.Timestamp
		}
		lines = append(lines, line)
	}
	return lines
}

func plainBody(conv *entity.Conversation) string {
	var sb strings.Builder
	sb.WriteString(conv.Answer)
	if len(conv.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		sb.WriteString(strings.Join(sourceLines(conv.Sources), "\n"))
	}
	return sb.String()
}
