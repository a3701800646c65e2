package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/askbase/knowledge-backend/internal/config"
	"github.com/askbase/knowledge-backend/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

var AllowedAudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".mp4":  true,
	".webm": true,
}

// Validator validates file uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks a single document upload against extension and size
// limits.
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return entity.NewValidationError("file", "no file provided")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !AllowedExtensions[ext] {
		return entity.NewValidationError("file", fmt.Sprintf("unsupported extension %s (allowed: txt, md, html, docx)", ext))
	}

	if fh.Size > v.cfg.MaxFileSize {
		return entity.NewValidationError("file", fmt.Sprintf("file %q is %d bytes (max %d)", fh.Filename, fh.Size, v.cfg.MaxFileSize))
	}

	return nil
}

// ValidateAudioUpload checks an audio or video upload.
func (v *Validator) ValidateAudioUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return entity.NewValidationError("file", "no file provided")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !AllowedAudioExtensions[ext] {
		return entity.NewValidationError("file", fmt.Sprintf("unsupported audio extension %s", ext))
	}

	if fh.Size > v.cfg.MaxAudioFileSize {
		return entity.NewValidationError("file", fmt.Sprintf("audio file %q is %d bytes (max %d)", fh.Filename, fh.Size, v.cfg.MaxAudioFileSize))
	}

	return nil
}

// MaxUploadSize bounds the multipart form parse.
func (v *Validator) MaxUploadSize() int64 {
	return v.cfg.MaxUploadSize
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
