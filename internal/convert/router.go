// Package convert turns uploaded documents into text with structural
// markers for extraction.
package convert

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"epcsync/internal/domain"
	"epcsync/internal/port"
)

// Router picks a converter by file extension, falling back to sniffing the
// content when the extension is missing or unknown.
type Router struct {
	pdf  port.Converter
	text port.Converter
}

// NewRouter creates a Router over the PDF and text converters.
func NewRouter(pdf, text port.Converter) *Router {
	return &Router{pdf: pdf, text: text}
}

// NewDefaultRouter wires the built-in converters.
func NewDefaultRouter() *Router {
	return NewRouter(NewPDFConverter(), NewTextConverter())
}

// Convert implements port.Converter.
func (r *Router) Convert(ctx context.Context, name string, data []byte) (string, error) {
	ft, err := DetectType(name, data)
	if err != nil {
		return "", &domain.ConversionError{Identity: name, Err: err}
	}
	if ft == domain.FileTypePDF {
		return r.pdf.Convert(ctx, name, data)
	}
	return r.text.Convert(ctx, name, data)
}

// DetectType resolves the document type from the extension of name, then
// from the content. Unknown content yields domain.ErrUnsupportedFileType.
func DetectType(name string, data []byte) (domain.FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ft, ok := domain.AllowedExtensions[ext]; ok {
		return ft, nil
	}
	if IsPDF(data) {
		return domain.FileTypePDF, nil
	}
	if ext == "" && len(data) > 0 && strings.HasPrefix(http.DetectContentType(data), "text/plain") {
		return domain.FileTypeText, nil
	}
	return "", domain.ErrUnsupportedFileType
}
