// Package outline provides a deterministic local model client that reads the
// bold/plain marker structure directly. It needs no network access and is used
// for offline runs and as a reference for the expected extraction shape.
package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"epcsync/internal/domain"
	"epcsync/internal/llm"
)

var (
	boldLine   = regexp.MustCompile(`^\*\*(.+?)\*\*$`)
	headingRE  = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	partCodeRE = regexp.MustCompile(`^([A-Z]{1,3}\s?[A-Z]{0,3}\d{5,}[A-Z0-9-]*)\s+(.+)$`)
	sectionNum = regexp.MustCompile(`^\d{1,3}\s+`)
	leaderTail = regexp.MustCompile(`[\s.…]*\d*\s*$`)
	leaderDots = regexp.MustCompile(`[.…]{2,}`)
)

// Client implements port.ModelClient without calling a model.
type Client struct{}

// NewClient creates an outline client.
func NewClient() *Client {
	return &Client{}
}

func (c *Client) Complete(ctx context.Context, _ string, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	record := Parse(llm.DocumentText(userPrompt))
	out, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshaling outline: %w", err)
	}
	return string(out), nil
}

// Parse converts marked text into a CatalogRecord: bold lines (or markdown
// headings) open a group, and plain lines become entries of the most recent
// group. Lines before the first group are ignored. Reading order is kept.
func Parse(text string) *domain.CatalogRecord {
	record := &domain.CatalogRecord{Groups: []domain.Group{}}
	var current *domain.Group

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if heading, ok := headingText(line); ok {
			heading = sectionNum.ReplaceAllString(cleanTail(heading), "")
			primary, secondary := SplitBilingual(heading)
			record.Groups = append(record.Groups, domain.Group{
				Name:          primary,
				SecondaryName: secondary,
				Entries:       []domain.Entry{},
			})
			current = &record.Groups[len(record.Groups)-1]
			continue
		}
		if current == nil {
			continue
		}

		entry := domain.Entry{}
		body := strings.ReplaceAll(line, "**", "")
		if m := partCodeRE.FindStringSubmatch(body); m != nil {
			entry.Code = m[1]
			body = m[2]
		}
		entry.Name, entry.SecondaryName = SplitBilingual(cleanTail(body))
		if entry.Name == "" {
			continue
		}
		current.Entries = append(current.Entries, entry)
	}
	return record
}

func headingText(line string) (string, bool) {
	if m := boldLine.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := headingRE.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(strings.ReplaceAll(m[1], "**", "")), true
	}
	return "", false
}

// cleanTail drops leader dots and trailing page numbers ("Frame ....4").
func cleanTail(s string) string {
	if leaderDots.MatchString(s) {
		s = leaderTail.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(leaderDots.ReplaceAllString(s, ""))
}

// SplitBilingual splits "Primary / Secondary" text, or text whose second half
// starts at the first Han character, into its two names.
func SplitBilingual(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " / "); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+3:])
	}
	for i, r := range s {
		if unicode.Is(unicode.Han, r) {
			if i == 0 {
				return s, ""
			}
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
		}
	}
	return s, ""
}
