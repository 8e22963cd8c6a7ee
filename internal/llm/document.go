package llm

import "strings"

const (
	documentOpen  = "<document>"
	documentClose = "</document>"
)

// WrapDocument encloses converted document text in delimiters so providers
// and prompts can tell the source apart from instructions.
func WrapDocument(text string) string {
	return documentOpen + "\n" + text + "\n" + documentClose
}

// DocumentText returns the text enclosed by the last WrapDocument block in
// prompt, or the whole prompt if there is none.
func DocumentText(prompt string) string {
	start := strings.LastIndex(prompt, documentOpen)
	if start < 0 {
		return prompt
	}
	rest := prompt[start+len(documentOpen):]
	if end := strings.LastIndex(rest, documentClose); end >= 0 {
		rest = rest[:end]
	}
	return strings.Trim(rest, "\n")
}
