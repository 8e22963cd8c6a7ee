package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
)

// PDFConverter renders PDF pages as text rows. Runs set in a bold font are
// wrapped in **...** so headings survive as structural markers.
type PDFConverter struct{}

// NewPDFConverter creates a PDFConverter.
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// Convert implements port.Converter. Unreadable input and reader panics
// become *domain.ConversionError. Image-only pages simply yield no text.
func (c *PDFConverter) Convert(ctx context.Context, name string, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("convert.PDFConverter: reader panic on %s: %v", name, r)
			text = ""
			err = &domain.ConversionError{Identity: name, Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	if len(data) == 0 {
		return "", &domain.ConversionError{Identity: name, Err: domain.ErrEmptyDocument}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &domain.ConversionError{Identity: name, Err: fmt.Errorf("opening PDF: %w", err)}
	}

	var out strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			logrus.Warnf("convert.PDFConverter: %s page %d unreadable, skipping: %v", name, i, err)
			continue
		}
		for _, row := range rows {
			if line := renderRow(row.Content); line != "" {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
		out.WriteByte('\n')
	}

	text = strings.TrimSpace(out.String())
	if text == "" {
		logrus.Warnf("convert.PDFConverter: %s produced no text (%d page(s)), possibly image-only", name, pages)
	}
	return text, nil
}

// renderRow joins the glyph runs of one row, inserting spaces at visible gaps
// and marking bold spans.
func renderRow(texts pdf.TextHorizontal) string {
	var b strings.Builder
	bold, started := false, false
	var prevEnd float64
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		isBold := isBoldFont(t.Font)
		if bold && !isBold {
			b.WriteString("**")
			bold = false
		}
		if started && t.X-prevEnd > t.FontSize*0.25 {
			b.WriteByte(' ')
		}
		if isBold && !bold {
			b.WriteString("**")
			bold = true
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
		started = true
	}
	if bold {
		b.WriteString("**")
	}
	return tidyMarkers(b.String())
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy")
}

// tidyMarkers drops empty bold spans and pulls trailing spaces out of them.
func tidyMarkers(s string) string {
	s = strings.ReplaceAll(s, "****", "")
	for strings.HasSuffix(s, " **") {
		s = strings.TrimSuffix(s, " **") + "**"
	}
	return strings.TrimSpace(s)
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}
