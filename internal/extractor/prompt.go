package extractor

import (
	"strings"

	"epcsync/internal/llm"
)

// BuildSystemPrompt returns the fixed extraction instruction. A non-empty
// suffix is appended as additional domain guidance.
func BuildSystemPrompt(suffix string) string {
	prompt := `You are a data extraction expert. Extract the catalog structure from the provided document text.

RULES:
1. Bold text (surrounded by **) or a markdown heading starts a new GROUP.
2. Plain lines below a group heading are ENTRIES of the most recent group. Keep groups and entries in reading order.
3. Bilingual text on one line ("English / Chinese", or English followed by Chinese characters) must be split: the English part goes in "name", the other part in "secondary_name".
4. Part entries often start with a part code (e.g. "D C97259880020 Front Accessories 中保险杠"). Put the code in "code" and the names in "name"/"secondary_name".
5. Ignore page numbers, leader dots and text before the first group.
6. Every group must have a non-empty "name" and at least one entry. Every entry must have a non-empty "name".

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation. Just the raw JSON object:
{
  "groups": [
    {
      "name": "",
      "secondary_name": "",
      "entries": [
        {"code": "", "name": "", "secondary_name": ""}
      ]
    }
  ]
}`
	if s := strings.TrimSpace(suffix); s != "" {
		prompt += "\n\nADDITIONAL INSTRUCTIONS:\n" + s
	}
	return prompt
}

// BuildUserPrompt returns the prompt for one attempt. The first attempt
// carries the document alone; later attempts list every error of the
// previous attempt before the same document.
func BuildUserPrompt(input string, priorErrors []string) string {
	if len(priorErrors) == 0 {
		return "Extract structured data from this document:\n\n" + llm.WrapDocument(input)
	}

	var b strings.Builder
	b.WriteString("The previous extraction had these errors:\n")
	for _, e := range priorErrors {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString(`
Please extract the data again, ensuring:
1. Valid JSON format (no markdown code blocks)
2. All required fields are present and non-empty
3. Correct data types (arrays, objects, strings)
4. Bold text (**text**) = group, plain text = entry of the most recent group
5. Bilingual names are split into "name" and "secondary_name"

Original document text:
`)
	b.WriteString(llm.WrapDocument(input))
	return b.String()
}
