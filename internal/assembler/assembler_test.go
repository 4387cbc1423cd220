package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hockey-rules-rag/internal/classifier"
	"hockey-rules-rag/internal/models"
)

func span(text string, size float64, color int, font string) models.Span {
	return models.Span{
		Text:       text,
		FontSize:   size,
		FontColor:  color,
		FontFamily: font,
		Dir:        [2]float64{1, 0},
	}
}

func headerSpan(text string) models.Span {
	return span(text, 12.0, 21407, "RobotoCondensed-Bold")
}

func sectionNameSpan(text string) models.Span {
	return span(text, 25.744544982910156, 21407, "RobotoCondensed-Light")
}

func ruleHeadSpan(text string) models.Span {
	return span(text, 11.0, 21407, "RobotoCondensed-Regular")
}

func bodySpan(text string) models.Span {
	return span(text, 9.92471694946289, 0, "RobotoCondensed-Light")
}

func refSpan(text string) models.Span {
	return span(text, 9.75, 21407, "RobotoCondensed-Regular")
}

func appendixSpan(text string) models.Span {
	return span(text, 9.75, 21407, "RobotoCondensed-Regular")
}

func TestAssembleHierarchy(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("14"),
		headerSpan("SECTION 01"),
		sectionNameSpan("PLAYING AREA"),
		ruleHeadSpan("RULE 1"),
		ruleHeadSpan("RINK"),
		ruleHeadSpan("1.1."),
		ruleHeadSpan("RINK DIMENSIONS"),
		bodySpan("Games must be played on an ice surface"),
		bodySpan("known as the rink."),
		ruleHeadSpan("1.2."),
		ruleHeadSpan("LINE MARKINGS"),
		bodySpan("The ice surface is divided by lines."),
	})

	require.Len(t, sections, 1)
	sec := sections[0]
	require.NotNil(t, sec.SectionNumber)
	assert.Equal(t, "SECTION 01", *sec.SectionNumber)
	require.NotNil(t, sec.SectionName)
	assert.Equal(t, "PLAYING AREA", *sec.SectionName)

	require.Len(t, sec.Rules, 1)
	rule := sec.Rules[0]
	assert.Equal(t, 1, rule.RuleNumber)
	assert.Equal(t, 14, rule.Page)
	require.NotNil(t, rule.RuleName)
	assert.Equal(t, "RINK", *rule.RuleName)

	require.Len(t, rule.Subrules, 2)
	first := rule.Subrules[0]
	assert.Equal(t, "1.1.", first.SubruleNumber)
	require.NotNil(t, first.SubruleName)
	assert.Equal(t, "RINK DIMENSIONS", *first.SubruleName)
	require.NotNil(t, first.RuleText)
	assert.Equal(t, "Games must be played on an ice surface known as the rink.", *first.RuleText)

	second := rule.Subrules[1]
	assert.Equal(t, "1.2.", second.SubruleNumber)
	require.NotNil(t, second.RuleText)
	assert.Equal(t, "The ice surface is divided by lines.", *second.RuleText)
}

func TestRuleWithoutSubrulesKeepsBodyOnRule(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 01"),
		sectionNameSpan("PLAYING AREA"),
		ruleHeadSpan("RULE 1"),
		ruleHeadSpan("RINK"),
		bodySpan("Games must be played on a white ice surface"),
		bodySpan("known as the rink."),
		// The next rule closes the first one mid-stream; the last rule
		// closes at end of input.
		ruleHeadSpan("RULE 2"),
		ruleHeadSpan("GOALS"),
		bodySpan("Each rink must have two goals."),
	})

	require.Len(t, sections, 1)
	require.Len(t, sections[0].Rules, 2)

	first := sections[0].Rules[0]
	assert.Equal(t, 1, first.RuleNumber)
	require.NotNil(t, first.RuleName)
	assert.Equal(t, "RINK", *first.RuleName)
	assert.Empty(t, first.Subrules)
	require.NotNil(t, first.RuleText)
	assert.Equal(t, "Games must be played on a white ice surface known as the rink.", *first.RuleText)

	second := sections[0].Rules[1]
	assert.Equal(t, 2, second.RuleNumber)
	assert.Empty(t, second.Subrules)
	require.NotNil(t, second.RuleText)
	assert.Equal(t, "Each rink must have two goals.", *second.RuleText)
}

func TestRepeatedHeadingsDoNotDuplicate(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 02"),
		ruleHeadSpan("RULE 10"),
		// Running heads repeat the rule number on every page.
		ruleHeadSpan("RULE 10"),
		ruleHeadSpan("10.1."),
		bodySpan("Sticks must be made of wood or approved material."),
		ruleHeadSpan("10.1."),
		bodySpan("The shaft must be straight."),
	})

	require.Len(t, sections, 1)
	require.Len(t, sections[0].Rules, 1)
	rule := sections[0].Rules[0]
	require.Len(t, rule.Subrules, 1)
	require.NotNil(t, rule.Subrules[0].RuleText)
	assert.Equal(t,
		"Sticks must be made of wood or approved material. The shaft must be straight.",
		*rule.Subrules[0].RuleText)
}

func TestReferencePlaceholdersAndDedup(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 03"),
		ruleHeadSpan("RULE 41"),
		ruleHeadSpan("41.1."),
		bodySpan("Boarding calls are judged by the referee"),
		refSpan("Rule 45 – Boarding"),
		bodySpan("and escalate on repeat offenses"),
		refSpan("Rule 45"),
		bodySpan("within the same game."),
	})

	require.Len(t, sections, 1)
	sub := sections[0].Rules[0].Subrules[0]
	assert.Equal(t, []string{"Rule 45 – Boarding"}, sub.RuleReference)
	require.NotNil(t, sub.RuleText)
	assert.Equal(t,
		"Boarding calls are judged by the referee {rule_reference_0} and escalate on repeat offenses {rule_reference_0} within the same game.",
		*sub.RuleText)
}

func TestReferenceContinuationMerging(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 03"),
		ruleHeadSpan("RULE 46"),
		ruleHeadSpan("46.1."),
		bodySpan("Fighting draws a major penalty"),
		refSpan("Rule"),
		refSpan("46.14."),
		refSpan("Match Penalties"),
		bodySpan("at minimum."),
	})

	require.Len(t, sections, 1)
	sub := sections[0].Rules[0].Subrules[0]
	require.Len(t, sub.RuleReference, 1)
	assert.Equal(t, "Rule 46.14 – Match Penalties", sub.RuleReference[0])
}

func TestAppendixTerminalStopsProcessing(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	a.ProcessSpan(headerSpan("SECTION 01"))
	a.ProcessSpan(ruleHeadSpan("RULE 1"))
	a.ProcessSpan(ruleHeadSpan("1.1."))
	a.ProcessSpan(bodySpan("Body before the appendix."))
	a.ProcessSpan(headerSpan("APPENDIX"))
	a.ProcessSpan(headerSpan("SECTION 99"))
	a.ProcessSpan(bodySpan("Appendix prose that must not leak in."))
	sections := a.Finish()

	require.Len(t, sections, 1)
	require.NotNil(t, sections[0].SectionNumber)
	assert.Equal(t, "SECTION 01", *sections[0].SectionNumber)
	sub := sections[0].Rules[0].Subrules[0]
	require.NotNil(t, sub.RuleText)
	assert.Equal(t, "Body before the appendix.", *sub.RuleText)
}

func TestAppendixInformationAttaches(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 01"),
		ruleHeadSpan("RULE 3"),
		ruleHeadSpan("3.1."),
		bodySpan("Goal frames must meet approved dimensions."),
		appendixSpan("For detailed measurements refer to Appendix VI."),
		appendixSpan("For detailed measurements refer to Appendix VI."),
	})

	require.Len(t, sections, 1)
	sub := sections[0].Rules[0].Subrules[0]
	assert.Equal(t, []string{"VI"}, sub.AppendixInformation)
}

func TestEmptyRuleDiscardedOnClose(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 01"),
		ruleHeadSpan("RULE 1"),
		ruleHeadSpan("RULE 2"),
		ruleHeadSpan("2.1."),
		bodySpan("Only this rule has content."),
	})

	require.Len(t, sections, 1)
	require.Len(t, sections[0].Rules, 1)
	assert.Equal(t, 2, sections[0].Rules[0].RuleNumber)
}

func TestHyphenationRepairAcrossSpans(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	sections := a.Process([]models.Span{
		headerSpan("SECTION 01"),
		ruleHeadSpan("RULE 1"),
		ruleHeadSpan("1.1."),
		bodySpan("The penal-"),
		bodySpan("ty is assessed immediately."),
	})

	sub := sections[0].Rules[0].Subrules[0]
	require.NotNil(t, sub.RuleText)
	assert.Equal(t, "The penalty is assessed immediately.", *sub.RuleText)
}

func TestNonHorizontalSpansIgnored(t *testing.T) {
	a := New(classifier.DefaultSignatures())
	vertical := bodySpan("SIDEWAYS WATERMARK")
	vertical.Dir = [2]float64{0, 1}
	sections := a.Process([]models.Span{
		headerSpan("SECTION 01"),
		ruleHeadSpan("RULE 1"),
		ruleHeadSpan("1.1."),
		vertical,
		bodySpan("Readable text only."),
	})

	sub := sections[0].Rules[0].Subrules[0]
	require.NotNil(t, sub.RuleText)
	assert.Equal(t, "Readable text only.", *sub.RuleText)
}
