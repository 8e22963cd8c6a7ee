package convert

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"epcsync/internal/domain"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	errNotText = errors.New("content is not valid UTF-8 text")
)

// TextConverter passes Markdown and plain text through unchanged apart from
// a leading byte-order mark and CRLF line endings.
type TextConverter struct{}

// NewTextConverter creates a TextConverter.
func NewTextConverter() *TextConverter {
	return &TextConverter{}
}

func (c *TextConverter) Convert(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", &domain.ConversionError{Identity: name, Err: errNotText}
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
