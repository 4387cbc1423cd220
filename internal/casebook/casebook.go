// Package casebook extracts worked situations from the situation handbook,
// which shares the rulebook's layout but groups question/answer pairs under
// rule numbers instead of prose subrules.
package casebook

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"hockey-rules-rag/internal/classifier"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/textutil"
)

// Signatures holds the font signatures of the handbook's structural roles.
type Signatures struct {
	SectionNumber   classifier.Signature `yaml:"section_number"`
	SectionName     classifier.Signature `yaml:"section_name"`
	RuleHeadline    classifier.Signature `yaml:"rule_headline"`
	SituationNumber classifier.Signature `yaml:"situation_number"`
	Question        classifier.Signature `yaml:"question"`
	AnswerHeadline  classifier.Signature `yaml:"answer_headline"`
	Answer          classifier.Signature `yaml:"answer"`
}

// DefaultSignatures returns the signatures measured from the 2024 IIHF
// situation handbook.
func DefaultSignatures() Signatures {
	return Signatures{
		SectionNumber: classifier.Signature{
			Sizes: []float64{12.0},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		SectionName: classifier.Signature{
			Sizes: []float64{25.744544982910156},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Light"},
		},
		RuleHeadline: classifier.Signature{
			Sizes: []float64{12.0},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		SituationNumber: classifier.Signature{
			Sizes: []float64{12.0},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		Question: classifier.Signature{
			Sizes: []float64{10.0},
			Color: 0,
			Fonts: []string{"RobotoCondensed-Light"},
		},
		AnswerHeadline: classifier.Signature{
			Sizes: []float64{12.0},
			Color: 45292,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		Answer: classifier.Signature{
			Sizes: []float64{10.0},
			Color: 0,
			Fonts: []string{"RobotoCondensed-Light"},
		},
	}
}

func (s Signatures) all() []classifier.Signature {
	return []classifier.Signature{
		s.SectionNumber, s.SectionName, s.RuleHeadline, s.SituationNumber,
		s.Question, s.AnswerHeadline, s.Answer,
	}
}

func (s Signatures) sizeBounds() (min, max float64) {
	first := true
	for _, sig := range s.all() {
		for _, size := range sig.Sizes {
			if first || size < min {
				min = size
			}
			if first || size > max {
				max = size
			}
			first = false
		}
	}
	return min, max
}

var (
	ruleNumberRe      = regexp.MustCompile(`(?i)RULE\s*(\d+)`)
	situationNumberRe = regexp.MustCompile(`SITUATION\s(\d{1,3}\.\d{1,3})`)
	// Citations inside answer prose, optionally qualified by a roman-numeral
	// clause marker like "Rule 63.2 (IV)".
	answerRefRe = regexp.MustCompile(`Rule\s(\d{1,3}(?:\.\d{1,3}){0,2}\.?(?:\s\((?:[IVX]{1,5})\))?)`)
)

// Extractor is the sequential state machine turning handbook spans into
// the section/rule/situation tree.
type Extractor struct {
	sigs    Signatures
	minSize float64
	maxSize float64

	sections  []*models.CaseSection
	section   *models.CaseSection
	rule      *models.CaseRule
	situation *models.CaseSituation
	question  string
	answer    string
	// answerOpen flips on the ANSWER headline; question spans share the
	// answer's font signature, so this flag is the only thing separating them.
	answerOpen bool

	last struct {
		sectionNumber   string
		sectionName     string
		ruleNumber      int
		situationNumber string
	}
}

// New creates an extractor for the given signature set.
func New(sigs Signatures) *Extractor {
	min, max := sigs.sizeBounds()
	return &Extractor{sigs: sigs, minSize: min, maxSize: max}
}

// Process consumes all spans and returns the finished casebook.
func (e *Extractor) Process(spans []models.Span) []*models.CaseSection {
	for _, span := range spans {
		e.ProcessSpan(span)
	}
	return e.Finish()
}

// ProcessSpan feeds one span through the state machine.
func (e *Extractor) ProcessSpan(span models.Span) {
	if !span.Horizontal() || span.FontSize < e.minSize || span.FontSize > e.maxSize {
		return
	}
	text := strings.TrimSpace(span.Text)

	switch {
	case e.sigs.SectionNumber.Matches(span) && strings.Contains(text, "SECTION") && isUpper(text):
		if text != e.last.sectionNumber {
			e.closeSection()
			e.section = &models.CaseSection{SectionNumber: models.StringPtr(text), Rules: []*models.CaseRule{}}
		}
		e.last.sectionNumber = text

	case e.section != nil && e.sigs.SectionName.Matches(span) && isUpper(text):
		if text != e.last.sectionName {
			e.section.SectionName = models.StringPtr(text)
		}
		e.last.sectionName = text

	case e.sigs.RuleHeadline.Matches(span) && ruleNumberRe.MatchString(text):
		num, err := strconv.Atoi(ruleNumberRe.FindStringSubmatch(text)[1])
		if err != nil {
			return
		}
		if num != e.last.ruleNumber {
			e.closeRule()
			e.rule = &models.CaseRule{RuleNumber: num}
		}
		e.last.ruleNumber = num

	case e.sigs.SituationNumber.Matches(span) && situationNumberRe.MatchString(text):
		num := situationNumberRe.FindStringSubmatch(text)[1]
		if num != e.last.situationNumber {
			e.closeSituation()
			e.question = ""
			e.situation = &models.CaseSituation{Number: num}
		}
		e.last.situationNumber = num

	case !e.answerOpen && e.sigs.Question.Matches(span):
		e.question = joinFragment(e.question, text)

	case e.sigs.AnswerHeadline.Matches(span) && text == "ANSWER":
		e.answerOpen = true

	case e.answerOpen && e.sigs.Answer.Matches(span):
		e.answer = joinFragment(e.answer, text)
	}
}

// joinFragment appends a span fragment to a text buffer and repairs the
// hyphenation artifacts the join can introduce.
func joinFragment(buf, fragment string) string {
	text := buf + " " + fragment
	text = textutil.RemoveHyphenation(text)
	text = textutil.TightenCompoundHyphens(text)
	return strings.TrimSpace(text)
}

// fillSituation moves the accumulated question and answer buffers into the
// situation and extracts the rules its answer cites.
func (e *Extractor) fillSituation() {
	if e.question != "" {
		e.situation.Question = models.StringPtr(e.question)
		e.question = ""
	}
	if e.answer != "" {
		e.situation.Answer = models.StringPtr(e.answer)
		e.situation.RuleReference = ExtractAnswerReferences(e.answer)
		e.answer = ""
	}
}

// closeSituation finalizes the open situation and files it under the open
// rule, keeping at most one situation per number.
func (e *Extractor) closeSituation() {
	if e.section == nil || e.rule == nil || e.situation == nil {
		e.situation = nil
		return
	}
	e.fillSituation()
	e.appendSituation()
	e.situation = nil
	e.answerOpen = false
}

// closeRule closes the open situation and files the rule under the open
// section.
func (e *Extractor) closeRule() {
	if e.section != nil && e.rule != nil {
		e.closeSituation()
		e.appendRule()
	} else if e.rule != nil {
		log.Printf("anomaly: rule %d closed with no open section", e.rule.RuleNumber)
	}
	e.situation = nil
	e.rule = nil
	e.answerOpen = false
}

// closeSection closes the whole open chain and appends the section.
func (e *Extractor) closeSection() {
	if e.section == nil {
		return
	}
	e.closeRule()
	e.sections = append(e.sections, e.section)
	e.section = nil
}

func (e *Extractor) appendSituation() {
	for _, existing := range e.rule.Situations {
		if existing.Number == e.situation.Number {
			return
		}
	}
	e.rule.Situations = append(e.rule.Situations, e.situation)
}

func (e *Extractor) appendRule() {
	for _, existing := range e.section.Rules {
		if existing.RuleNumber == e.rule.RuleNumber {
			return
		}
	}
	e.section.Rules = append(e.section.Rules, e.rule)
}

// Finish flushes the open chain and returns the casebook.
func (e *Extractor) Finish() []*models.CaseSection {
	e.closeSection()
	return e.sections
}

// ExtractAnswerReferences returns the rules cited in an answer text, with
// trailing dots stripped and duplicates removed in first-seen order. Returns
// nil when the answer cites nothing.
func ExtractAnswerReferences(text string) []string {
	var refs []string
	for _, m := range answerRefRe.FindAllStringSubmatch(text, -1) {
		ref := strings.TrimSpace(strings.TrimRight(m[1], "."))
		duplicate := false
		for _, existing := range refs {
			if existing == ref {
				duplicate = true
				break
			}
		}
		if !duplicate {
			refs = append(refs, ref)
		}
	}
	return refs
}

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
