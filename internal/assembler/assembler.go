// Package assembler reconstructs the hierarchical rule document from the
// flat, classified span stream. It is strictly sequential: span order is
// significant and the state machine has no concurrent-execution semantics.
package assembler

import (
	"log"
	"strings"

	"hockey-rules-rag/internal/classifier"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/references"
	"hockey-rules-rag/internal/textutil"
)

// Event is a classified span together with whether its value differs from
// the last value seen for that label. Structural transitions only fire on
// changed values, which suppresses re-fires from repeated font artifacts.
type Event struct {
	classifier.Classification
	Changed bool
}

// Assembler consumes spans in reading order and incrementally builds the
// Section → Rule → Subrule tree.
type Assembler struct {
	cls *classifier.Classifier

	sections []*models.Section
	section  *models.Section
	rule     *models.Rule
	subrule  *models.Subrule
	body     string
	page     int

	everSection bool
	lastSpan    *models.Span
	done        bool

	last lastSeen
}

type lastSeen struct {
	sectionNumber string
	sectionName   string
	ruleNumber    int
	ruleName      string
	subruleNumber string
	subruleName   string
}

// New creates an assembler classifying spans with the given signature set.
func New(sigs classifier.SignatureSet) *Assembler {
	return &Assembler{cls: classifier.New(sigs)}
}

// Process consumes all spans and returns the finished corpus.
func (a *Assembler) Process(spans []models.Span) []*models.Section {
	for _, span := range spans {
		a.ProcessSpan(span)
	}
	return a.Finish()
}

// ProcessSpan feeds one span through classification and the state machine.
// Spans after the APPENDIX terminal are ignored.
func (a *Assembler) ProcessSpan(span models.Span) {
	if a.done || !span.Horizontal() {
		return
	}
	// Marker and lone-space spans still count as predecessors even when
	// their size falls outside every signature.
	if strings.Contains(span.Text, "»") || span.Text == " " {
		s := span
		a.lastSpan = &s
	}
	if !a.cls.InSizeRange(span) {
		return
	}
	c := a.cls.Classify(span, a.lastSpan, a.everSection)
	ev := a.track(c)
	s := span
	a.lastSpan = &s
	a.apply(ev)
}

// track turns a classification into an event with its value-changed flag,
// updating the last-seen values.
func (a *Assembler) track(c classifier.Classification) Event {
	ev := Event{Classification: c, Changed: true}
	switch c.Label {
	case classifier.LabelSectionNumber:
		ev.Changed = c.Section != a.last.sectionNumber
		a.last.sectionNumber = c.Section
	case classifier.LabelSectionName:
		ev.Changed = c.Name != a.last.sectionName
		a.last.sectionName = c.Name
	case classifier.LabelRuleNumber:
		ev.Changed = c.RuleNumber != a.last.ruleNumber
		a.last.ruleNumber = c.RuleNumber
	case classifier.LabelRuleName:
		ev.Changed = c.Name != a.last.ruleName
		a.last.ruleName = c.Name
	case classifier.LabelSubruleNumber:
		ev.Changed = c.SubruleNumber != a.last.subruleNumber
		a.last.subruleNumber = c.SubruleNumber
	case classifier.LabelSubruleName:
		ev.Changed = c.Name != a.last.subruleName
		a.last.subruleName = c.Name
	}
	return ev
}

func (a *Assembler) apply(ev Event) {
	switch ev.Label {
	case classifier.LabelNone:
		// Classification miss: expected, silent.
	case classifier.LabelPageNumber:
		a.page = ev.Page
	case classifier.LabelSectionTerminal:
		// Designed end-of-document sentinel: the appendices that follow
		// are out of scope.
		a.done = true
	case classifier.LabelSectionNumber:
		a.everSection = true
		if ev.Changed {
			a.closeSection()
			a.section = &models.Section{SectionNumber: models.StringPtr(ev.Section), Rules: []*models.Rule{}}
		}
	case classifier.LabelSectionName:
		if ev.Changed {
			if a.section == nil {
				log.Printf("anomaly: section name %q with no open section (page %d)", ev.Name, a.page)
				return
			}
			a.section.SectionName = models.StringPtr(ev.Name)
		}
	case classifier.LabelRuleNumber:
		if ev.Changed {
			a.closeRule()
			a.rule = &models.Rule{Page: a.page, RuleNumber: ev.RuleNumber, Subrules: []*models.Subrule{}}
		}
	case classifier.LabelRuleName:
		if ev.Changed {
			if a.rule == nil {
				log.Printf("anomaly: rule name %q with no open rule (page %d)", ev.Name, a.page)
				return
			}
			a.rule.RuleName = models.StringPtr(ev.Name)
		}
	case classifier.LabelSubruleNumber:
		if ev.Changed {
			a.closeSubrule()
			a.body = ""
			a.subrule = &models.Subrule{Page: a.page, SubruleNumber: ev.SubruleNumber}
		}
	case classifier.LabelSubruleName:
		if ev.Changed {
			if a.subrule == nil {
				log.Printf("anomaly: subrule name %q with no open subrule (page %d)", ev.Name, a.page)
				return
			}
			if a.subrule.SubruleName == nil {
				a.subrule.SubruleName = models.StringPtr(ev.Name)
			} else {
				// Multi-span titles arrive in pieces.
				*a.subrule.SubruleName += " " + ev.Name
			}
		}
	case classifier.LabelBodyText:
		a.appendBody(ev.Text)
	case classifier.LabelAppendixReference:
		a.addAppendix(ev.Text)
	case classifier.LabelRuleReference:
		a.addReference(ev.Text)
	case classifier.LabelReferenceContinuation:
		a.continueReference(ev.Text)
	}
}

// appendBody joins a body fragment onto the accumulating buffer and repairs
// hyphenation over the result. Fragments opening with ")" close a wrapped
// marker and join without a space.
func (a *Assembler) appendBody(fragment string) {
	var text string
	if strings.HasPrefix(fragment, ")") {
		text = a.body + fragment
	} else {
		text = a.body + " " + fragment
	}
	text = textutil.RemoveHyphenation(text)
	text = textutil.TightenCompoundHyphens(text)
	a.body = strings.TrimSpace(text)
}

func (a *Assembler) addAppendix(value string) {
	if value == "" {
		return
	}
	var list *[]string
	switch {
	case a.subrule != nil:
		list = &a.subrule.AppendixInformation
	case a.rule != nil:
		list = &a.rule.AppendixInformation
	default:
		log.Printf("anomaly: appendix reference %q with no open rule (page %d)", value, a.page)
		return
	}
	for _, existing := range *list {
		if existing == value {
			return
		}
	}
	*list = append(*list, value)
}

// refTarget returns the reference list of the deepest open entity.
func (a *Assembler) refTarget() *[]string {
	if a.subrule != nil {
		return &a.subrule.RuleReference
	}
	if a.rule != nil {
		return &a.rule.RuleReference
	}
	return nil
}

// addReference records a cross-reference citation, deduplicating against
// existing entries (exact match or same pre-dash prefix), and embeds a
// positional placeholder for it in the body buffer.
func (a *Assembler) addReference(text string) {
	list := a.refTarget()
	if list == nil {
		log.Printf("anomaly: rule reference %q with no open rule (page %d)", text, a.page)
		return
	}
	for i, existing := range *list {
		if existing == text || refPrefix(existing) == refPrefix(text) {
			a.body += " " + references.Placeholder(i)
			return
		}
	}
	*list = append(*list, text)
	a.body += " " + references.Placeholder(len(*list)-1)
}

// continueReference merges a fragment into the most recently opened
// reference entry. The dash-vs-numeric junction branches reproduce the
// layouts observed in the source document; do not simplify without
// regression testing against it.
func (a *Assembler) continueReference(text string) {
	list := a.refTarget()
	if list == nil || len(*list) == 0 {
		log.Printf("anomaly: reference continuation %q with no open reference (page %d)", text, a.page)
		return
	}
	ref := (*list)[len(*list)-1]
	switch {
	case strings.Contains(ref, "-") || strings.Contains(ref, "–"):
		if strings.HasSuffix(ref, " ") {
			ref += text
		} else {
			ref += " " + text
		}
	case text[0] >= '0' && text[0] <= '9':
		if strings.HasSuffix(ref, " ") {
			ref += text
		} else {
			ref += " " + text
		}
	default:
		if strings.HasSuffix(ref, " ") {
			ref += "– " + text
		} else {
			ref += " – " + text
		}
	}
	ref = textutil.RemoveHyphenation(ref)
	(*list)[len(*list)-1] = strings.TrimRight(ref, ".")
}

func refPrefix(s string) string {
	return strings.TrimSpace(strings.SplitN(s, "–", 2)[0])
}

// closeSubrule flushes the body buffer into the open subrule and appends it
// to the open rule, then resets the subrule state.
func (a *Assembler) closeSubrule() {
	if a.section == nil || a.rule == nil || a.subrule == nil {
		a.subrule = nil
		return
	}
	if a.body != "" {
		a.subrule.RuleText = models.StringPtr(a.body)
		a.body = ""
	}
	a.appendSubrule()
	a.subrule = nil
}

// closeRule closes the open subrule and/or rule before a new rule opens.
// A subrule-less rule that accumulated no text is discarded.
func (a *Assembler) closeRule() {
	if a.section != nil && a.rule != nil {
		if a.subrule != nil {
			if a.body != "" {
				a.subrule.RuleText = models.StringPtr(a.body)
				a.body = ""
			}
			a.appendSubrule()
			a.appendRule()
		} else if a.body != "" {
			a.rule.RuleText = models.StringPtr(a.body)
			a.body = ""
			a.appendRule()
		}
	}
	a.subrule = nil
	a.rule = nil
}

// closeSection closes the whole open chain and appends the section to the
// corpus.
func (a *Assembler) closeSection() {
	if a.section == nil {
		return
	}
	if a.rule != nil {
		if a.subrule != nil {
			if a.body != "" {
				a.subrule.RuleText = models.StringPtr(a.body)
			}
			a.appendSubrule()
		} else if a.rule.RuleText == nil || *a.rule.RuleText == "" {
			a.rule.RuleText = models.StringPtr(a.body)
		}
		a.appendRule()
	}
	a.sections = append(a.sections, a.section)
	a.section, a.rule, a.subrule = nil, nil, nil
	a.body = ""
}

// appendSubrule adds the open subrule to the open rule, keeping at most one
// subrule per distinct number.
func (a *Assembler) appendSubrule() {
	for _, existing := range a.rule.Subrules {
		if existing.SubruleNumber == a.subrule.SubruleNumber {
			return
		}
	}
	a.rule.Subrules = append(a.rule.Subrules, a.subrule)
}

// appendRule adds the open rule to the open section, keeping at most one
// rule per distinct number.
func (a *Assembler) appendRule() {
	for _, existing := range a.section.Rules {
		if existing.RuleNumber == a.rule.RuleNumber {
			return
		}
	}
	a.section.Rules = append(a.section.Rules, a.rule)
}

// Finish flushes any still-open subrule, rule, and section into the corpus
// and returns it. A section that never opened a rule is dropped.
func (a *Assembler) Finish() []*models.Section {
	if a.section != nil && a.rule != nil {
		if a.subrule != nil {
			if a.subrule.RuleText == nil || *a.subrule.RuleText == "" {
				a.subrule.RuleText = models.StringPtr(a.body)
			}
			a.appendSubrule()
		} else if a.rule.RuleText == nil || *a.rule.RuleText == "" {
			a.rule.RuleText = models.StringPtr(a.body)
		}
		a.appendRule()
		a.sections = append(a.sections, a.section)
	}
	a.section, a.rule, a.subrule = nil, nil, nil
	a.body = ""
	a.done = true
	return a.sections
}
