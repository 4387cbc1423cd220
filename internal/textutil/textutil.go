// Package textutil repairs artifacts introduced by extracting line-wrapped
// text from the source document span by span.
package textutil

import "regexp"

var (
	lineBreakHyphen = regexp.MustCompile(`([a-zA-Z])-\s([a-zA-Z])`)
	spacedHyphen    = regexp.MustCompile(`([a-zA-Z])\s-\s([a-zA-Z])`)
	compoundHyphen  = regexp.MustCompile(`(“?[a-zA-Z]”?)\s?-\s(“?[a-zA-Z]”?)`)
)

// RemoveHyphenation rejoins words that were hyphenated at a line wrap:
// a trailing "word-" followed by the continuation is merged without the hyphen.
func RemoveHyphenation(text string) string {
	return lineBreakHyphen.ReplaceAllString(text, "$1$2")
}

// TightenCompoundHyphens removes the stray whitespace that span joining
// leaves around hyphens that belong to the word itself, so single-letter
// compounds like "T-shaped" keep their hyphen.
func TightenCompoundHyphens(text string) string {
	text = spacedHyphen.ReplaceAllString(text, "$1-$2")
	text = compoundHyphen.ReplaceAllString(text, "$1-$2")
	return text
}
