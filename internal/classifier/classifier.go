// Package classifier labels styled text spans by their structural role in
// the rulebook, using exact-match font signatures plus light textual shape
// checks. Classification is pure: the same span, predecessor, and section
// state always produce the same result.
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"hockey-rules-rag/internal/models"
)

// Label identifies the structural role a span was classified as.
type Label int

const (
	// LabelNone means no classifier matched; the span is ignored.
	LabelNone Label = iota
	LabelPageNumber
	LabelSectionNumber
	// LabelSectionTerminal marks the APPENDIX heading that ends the
	// structured part of the document.
	LabelSectionTerminal
	LabelSectionName
	LabelRuleNumber
	LabelRuleName
	LabelSubruleNumber
	LabelSubruleName
	LabelBodyText
	LabelAppendixReference
	LabelRuleReference
	// LabelReferenceContinuation is a fragment that extends the most
	// recently opened cross-reference instead of starting a new one.
	LabelReferenceContinuation
)

// Classification is the tagged result of classifying one span. Only the
// field matching the label carries a value.
type Classification struct {
	Label         Label
	Page          int
	Section       string
	Name          string
	RuleNumber    int
	SubruleNumber string
	Text          string
}

var (
	ruleNumberRe    = regexp.MustCompile(`(?i)RULE\s*(\d+)`)
	subruleNumberRe = regexp.MustCompile(`^\d{1,3}\.\d{1,2}(\.\d{1,2})?\.?$`)
	appendixRefRe   = regexp.MustCompile(`refer to Appendix (.*?)(?:\.|$)`)
	ruleRefRe       = regexp.MustCompile(`^Rules? \d{1,3}(\.\d{1,2})*\.?\s*([-–]\s*.+)?$`)
)

// Classifier applies the signature set in a fixed priority order and stops
// at the first match.
type Classifier struct {
	sigs    SignatureSet
	minSize float64
	maxSize float64
}

// New creates a classifier for the given signature set.
func New(sigs SignatureSet) *Classifier {
	min, max := sigs.sizeBounds()
	return &Classifier{sigs: sigs, minSize: min, maxSize: max}
}

// InSizeRange reports whether the span's font size falls inside the union
// of all known signature sizes. Spans outside are skipped before
// classification.
func (c *Classifier) InSizeRange(span models.Span) bool {
	return span.FontSize >= c.minSize && span.FontSize <= c.maxSize
}

// Classify labels a span. prev is the immediately preceding span (nil at
// the start of input); sectionOpen reports whether a section heading has
// been seen, which gates section names and reference continuations.
func (c *Classifier) Classify(span models.Span, prev *models.Span, sectionOpen bool) Classification {
	if r, ok := c.pageNumber(span); ok {
		return r
	}
	if r, ok := c.sectionNumber(span, sectionOpen); ok {
		return r
	}
	if r, ok := c.sectionName(span, sectionOpen); ok {
		return r
	}
	if r, ok := c.ruleNumber(span); ok {
		return r
	}
	if r, ok := c.ruleName(span, prev); ok {
		return r
	}
	if r, ok := c.subruleNumber(span); ok {
		return r
	}
	if r, ok := c.subruleName(span, prev); ok {
		return r
	}
	if r, ok := c.bodyText(span, prev); ok {
		return r
	}
	if r, ok := c.appendixReference(span); ok {
		return r
	}
	if r, ok := c.ruleReference(span, sectionOpen); ok {
		return r
	}
	return Classification{}
}

func (c *Classifier) pageNumber(span models.Span) (Classification, bool) {
	num, err := strconv.Atoi(strings.TrimSpace(span.Text))
	if err != nil {
		return Classification{}, false
	}
	if !c.sigs.PageNumber.Matches(span) {
		return Classification{}, false
	}
	return Classification{Label: LabelPageNumber, Page: num}, true
}

func (c *Classifier) sectionNumber(span models.Span, sectionOpen bool) (Classification, bool) {
	text := strings.TrimSpace(span.Text)
	if !c.sigs.SectionNumber.Matches(span) {
		return Classification{}, false
	}
	if strings.Contains(text, "SECTION") && isUpper(text) {
		return Classification{Label: LabelSectionNumber, Section: text}, true
	}
	if strings.Contains(text, "APPENDIX") && isUpper(text) && sectionOpen {
		return Classification{Label: LabelSectionTerminal}, true
	}
	return Classification{}, false
}

func (c *Classifier) sectionName(span models.Span, sectionOpen bool) (Classification, bool) {
	if !sectionOpen {
		return Classification{}, false
	}
	text := strings.TrimSpace(span.Text)
	if !c.sigs.SectionName.Matches(span) || !isUpper(text) {
		return Classification{}, false
	}
	return Classification{Label: LabelSectionName, Name: text}, true
}

func (c *Classifier) ruleNumber(span models.Span) (Classification, bool) {
	if !c.sigs.RuleHeadline.Matches(span) {
		return Classification{}, false
	}
	m := ruleNumberRe.FindStringSubmatch(strings.TrimSpace(span.Text))
	if m == nil {
		return Classification{}, false
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return Classification{}, false
	}
	return Classification{Label: LabelRuleNumber, RuleNumber: num}, true
}

func (c *Classifier) ruleName(span models.Span, prev *models.Span) (Classification, bool) {
	text := strings.TrimSpace(span.Text)
	if !c.sigs.RuleHeadline.Matches(span) || !isUpper(text) || prev == nil {
		return Classification{}, false
	}
	// A rule name is only accepted directly after its rule number.
	if _, ok := c.ruleNumber(*prev); !ok {
		return Classification{}, false
	}
	return Classification{Label: LabelRuleName, Name: text}, true
}

func (c *Classifier) subruleNumber(span models.Span) (Classification, bool) {
	text := strings.TrimSpace(span.Text)
	if !c.sigs.SubruleHeadline.Matches(span) || !subruleNumberRe.MatchString(text) {
		return Classification{}, false
	}
	return Classification{Label: LabelSubruleNumber, SubruleNumber: text}, true
}

func (c *Classifier) subruleName(span models.Span, prev *models.Span) (Classification, bool) {
	text := strings.TrimSpace(span.Text)
	if !c.sigs.SubruleHeadline.Matches(span) || !isUpper(text) || prev == nil {
		return Classification{}, false
	}
	// Accept after a subrule number, or after a span ending in a space:
	// multi-span titles continue on the next span.
	_, numberBefore := c.subruleNumber(*prev)
	if !numberBefore && !strings.HasSuffix(prev.Text, " ") {
		return Classification{}, false
	}
	return Classification{Label: LabelSubruleName, Name: text}, true
}

func (c *Classifier) bodyText(span models.Span, prev *models.Span) (Classification, bool) {
	isBody := c.sigs.BodyText.Matches(span)
	isHeadline := c.sigs.BodyTextHeadline.Matches(span)
	// Body fragments wedged between reference spans inherit the reference
	// sizes but keep the body color and fonts.
	between := c.sigs.Reference.matchesSize(span.FontSize) &&
		c.sigs.BodyText.matchesColor(span.FontColor) &&
		c.sigs.BodyText.matchesFont(span.FontFamily)
	if !isBody && !isHeadline && !between {
		return Classification{}, false
	}
	text := strings.TrimSpace(span.Text)
	if prev != nil && (strings.Contains(prev.Text, "»") || prev.Text == " " && strings.Contains(text, "For more information refer to")) {
		text = "( » " + text + ")"
	}
	return Classification{Label: LabelBodyText, Text: text}, true
}

func (c *Classifier) appendixReference(span models.Span) (Classification, bool) {
	if !c.sigs.Appendix.Matches(span) {
		return Classification{}, false
	}
	m := appendixRefRe.FindStringSubmatch(strings.TrimSpace(span.Text))
	if m == nil {
		return Classification{}, false
	}
	return Classification{Label: LabelAppendixReference, Text: strings.TrimSpace(m[1])}, true
}

func (c *Classifier) ruleReference(span models.Span, sectionOpen bool) (Classification, bool) {
	text := strings.TrimRight(strings.ReplaceAll(strings.TrimSpace(span.Text), `"`, ""), ",")
	if text == "" || !c.sigs.Reference.Matches(span) {
		return Classification{}, false
	}
	if ruleRefRe.MatchString(text) {
		if strings.HasPrefix(text, "Rules") {
			text = strings.Replace(text, "Rules", "Rule", 1)
		}
		return Classification{Label: LabelRuleReference, Text: strings.TrimRight(text, ".")}, true
	}
	if !sectionOpen {
		return Classification{}, false
	}
	// Bare dashes are layout noise; a bare "Rule" opens a reference that
	// later fragments complete.
	if text == "–" || text == "-" {
		return Classification{}, false
	}
	if text == "Rule" {
		return Classification{Label: LabelRuleReference, Text: text}, true
	}
	return Classification{Label: LabelReferenceContinuation, Text: text}, true
}

// isUpper reports whether s has at least one cased character and no
// lowercase ones.
func isUpper(s string) bool {
	hasCased := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasCased = true
		}
	}
	return hasCased
}
