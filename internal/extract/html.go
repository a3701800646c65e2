package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
)

var (
	scriptRe     = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	blockBreakRe = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|section|article)>|<br\s*/?>`)
	headingRe    = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
)

// fromHTML strips markup down to paragraph-separated text. Headings keep a
// markdown marker so the chunker tags them.
func fromHTML(raw string) *entity.ExtractedContent {
	text := scriptRe.ReplaceAllString(raw, "")
	text = headingRe.ReplaceAllString(text, "\n\n# $1\n\n")
	text = blockBreakRe.ReplaceAllString(text, "\n\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	text = spaceRunRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	return &entity.ExtractedContent{Text: text, PageCount: 1}
}
