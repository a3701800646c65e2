package extract

import (
	"path/filepath"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

// charsPerPage approximates one printed page for formats that carry no
// pagination of their own. Drives per-page metering.
const charsPerPage = 3000

// FromFile turns an uploaded file into plain text plus a page count. The
// text keeps form-feed page breaks and blank-line paragraph boundaries so
// the chunker can recover structure.
func FromFile(filename string, content []byte) (*entity.ExtractedContent, error) {
	if len(content) == 0 {
		return nil, entity.ErrEmptyContent
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return fromPlainText(string(content)), nil
	case ".html", ".htm":
		return fromHTML(string(content)), nil
	case ".docx":
		return fromDOCX(content)
	default:
		return nil, entity.NewValidationError("file", "unsupported file extension: "+filepath.Ext(filename))
	}
}

// FromHTML extracts readable text from a fetched web page.
func FromHTML(content []byte) (*entity.ExtractedContent, error) {
	if len(content) == 0 {
		return nil, entity.ErrEmptyContent
	}
	return fromHTML(string(content)), nil
}

func fromPlainText(text string) *entity.ExtractedContent {
	return &entity.ExtractedContent{
		Text:      text,
		PageCount: pageCount(text),
	}
}

// pageCount honors explicit form-feed breaks and falls back to a size
// estimate otherwise.
func pageCount(text string) int {
	if breaks := strings.Count(text, "\f"); breaks > 0 {
		return breaks + 1
	}
	pages := len(text)/charsPerPage + 1
	return pages
}
