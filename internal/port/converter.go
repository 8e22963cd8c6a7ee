package port

import "context"

// Converter turns raw document bytes into plain text with structural markers
// (bold headings rendered as **...**).
type Converter interface {
	Convert(ctx context.Context, name string, data []byte) (string, error)
}
