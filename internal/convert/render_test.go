package convert

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
)

func glyphs(font string, x float64, s string) []pdf.Text {
	out := make([]pdf.Text, 0, len(s))
	for _, r := range s {
		out = append(out, pdf.Text{Font: font, FontSize: 10, X: x, W: 5, S: string(r)})
		x += 5
	}
	return out
}

func TestRenderRow(t *testing.T) {
	tests := []struct {
		name  string
		texts pdf.TextHorizontal
		want  string
	}{
		{
			name:  "plain",
			texts: glyphs("Helvetica", 0, "Bolt"),
			want:  "Bolt",
		},
		{
			name:  "bold heading",
			texts: glyphs("Arial-BoldMT", 0, "Frame"),
			want:  "**Frame**",
		},
		{
			name:  "gap becomes space inside bold",
			texts: append(glyphs("Arial-BoldMT", 0, "Frame"), glyphs("Arial-BoldMT", 40, "System")...),
			want:  "**Frame System**",
		},
		{
			name:  "bold then plain",
			texts: append(glyphs("Arial-BoldMT", 0, "A1"), glyphs("Arial", 20, "Bolt")...),
			want:  "**A1** Bolt",
		},
		{
			name:  "empty",
			texts: nil,
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderRow(tt.texts))
		})
	}
}

func TestIsBoldFont(t *testing.T) {
	assert.True(t, isBoldFont("ABCDEE+Arial-BoldMT"))
	assert.True(t, isBoldFont("SourceHanSans-Heavy"))
	assert.False(t, isBoldFont("Helvetica"))
}
