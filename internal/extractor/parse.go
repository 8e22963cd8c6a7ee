package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a surrounding ``` code block and any prose before the
// first '{' or after the last '}'.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		var kept []string
		inBlock := false
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				kept = append(kept, line)
			}
		}
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}
	if start := strings.Index(text, "{"); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndex(text, "}"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}
	return text
}

// decodeJSON parses model output into a generic JSON value for schema
// validation. A failure is reported as a violation message, not an error.
func decodeJSON(text string) (interface{}, string) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, "JSON parsing error: empty response"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Sprintf("JSON parsing error: %v (raw: %s)", err, truncate(cleaned, 200))
	}
	if dec.More() {
		return nil, "JSON parsing error: unexpected data after the JSON object"
	}
	return v, ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
