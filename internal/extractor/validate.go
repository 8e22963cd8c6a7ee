package extractor

import (
	"fmt"
	"strings"
	"unicode"

	"epcsync/internal/domain"
)

// semanticViolations checks the record invariants the schema cannot express.
// Every violation is collected.
func semanticViolations(r *domain.CatalogRecord, allowEmptyGroups bool) []string {
	var errs []string
	if len(r.Groups) == 0 {
		return []string{"record: at least one group is required"}
	}
	for i := range r.Groups {
		g := &r.Groups[i]
		label := fmt.Sprintf("groups[%d]", i)
		errs = append(errs, nameViolations(label, g.Name, g.SecondaryName)...)
		if len(g.Entries) == 0 && !allowEmptyGroups {
			errs = append(errs, fmt.Sprintf("%s (%q): group has no entries; every group needs at least one entry", label, g.Name))
		}
		for j := range g.Entries {
			e := &g.Entries[j]
			errs = append(errs, nameViolations(fmt.Sprintf("%s.entries[%d]", label, j), e.Name, e.SecondaryName)...)
		}
	}
	return errs
}

func nameViolations(label, primary, secondary string) []string {
	var errs []string
	p := strings.TrimSpace(primary)
	s := strings.TrimSpace(secondary)
	if p == "" {
		return []string{label + ": name is empty"}
	}
	if strings.Contains(p, " / ") {
		errs = append(errs, fmt.Sprintf("%s (%q): bilingual name is not split into name and secondary_name", label, p))
	} else if s == "" && startsLatinEndsHan(p) {
		errs = append(errs, fmt.Sprintf("%s (%q): name mixes two languages; move the second language to secondary_name", label, p))
	}
	if s != "" && s == p {
		errs = append(errs, fmt.Sprintf("%s (%q): secondary_name duplicates name", label, p))
	}
	return errs
}

// startsLatinEndsHan reports text like "Frame System 车架系统".
func startsLatinEndsHan(s string) bool {
	var first, last rune
	for _, r := range s {
		if unicode.IsLetter(r) {
			if first == 0 {
				first = r
			}
			last = r
		}
	}
	return first != 0 && unicode.Is(unicode.Latin, first) && unicode.Is(unicode.Han, last)
}
