// Package references handles the positional cross-reference placeholders
// embedded in rule text during document assembly and resolved when the
// corpus is materialized for embedding or display.
package references

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
)

var placeholderRe = regexp.MustCompile(`\{rule_reference_(\d+)\}`)

// Placeholder returns the token embedded in rule text for the reference at
// the given index of the owning entity's reference list.
func Placeholder(index int) string {
	return "{rule_reference_" + strconv.Itoa(index) + "}"
}

// Resolve replaces every placeholder token in text with the referenced
// citation in parentheses. An index past the end of the reference list is
// substituted with a visible sentinel and logged; it never fails. Text
// without placeholders is returned unchanged, so resolving twice is a no-op.
func Resolve(text string, refs []string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		m := placeholderRe.FindStringSubmatch(token)
		index, err := strconv.Atoi(m[1])
		if err != nil || index >= len(refs) {
			log.Printf("warning: rule text references missing entry %s (have %d references)", m[1], len(refs))
			return fmt.Sprintf("[Missing Reference %s]", m[1])
		}
		return "(" + refs[index] + ")"
	})
}

// Extract returns the reference indices of all placeholders in text, in
// order of appearance.
func Extract(text string) []int {
	var indices []int
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		indices = append(indices, index)
	}
	return indices
}
