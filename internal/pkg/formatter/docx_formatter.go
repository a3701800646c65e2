package formatter

import (
	"bytes"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(conv *entity.Conversation) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titleRun := titlePar.AddRun()
	titleRun.AddText(conv.Question)

	doc.AddParagraph()

	bodyPar := doc.AddParagraph()
	bodyRun := bodyPar.AddRun()
	bodyRun.AddText(conv.Answer)

	if len(conv.Sources) > 0 {
		doc.AddParagraph()

		headPar := doc.AddParagraph()
		headPar.SetStyle("Heading2")
		headPar.AddRun().AddText("Sources")

		for _, line := range sourceLines(conv.Sources) {
			srcPar := doc.AddParagraph()
			srcPar.AddRun().AddText(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
