package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hockey-rules-rag/internal/models"
)

type stubRulebook map[string]models.RuleEntry

func (s stubRulebook) GetRuleByID(id string) (models.RuleEntry, bool) {
	entry, ok := s[strings.TrimRight(id, ".")+"."]
	return entry, ok
}

func testRulebook() stubRulebook {
	return stubRulebook{
		"63.2.": {
			ID:           "63.2.",
			RuleTitle:    models.StringPtr("DELAYING THE GAME"),
			SubruleTitle: models.StringPtr("OBJECTS THROWN ON THE ICE"),
			Text:         "full text",
		},
		"27.1.": {
			ID:        "27.1.",
			RuleTitle: models.StringPtr("GOALKEEPER"),
			Text:      "full text",
		},
	}
}

func TestBuildWithRulesAndSituations(t *testing.T) {
	b := NewBuilder(testRulebook())
	got := b.Build("Is this a penalty?",
		[]models.ScoredRule{
			{
				RuleID:       "63.2.",
				RuleTitle:    models.StringPtr("DELAYING THE GAME"),
				SubruleTitle: models.StringPtr("OBJECTS THROWN ON THE ICE"),
				Text:         "A player shall not throw objects.",
			},
			{
				RuleID:    "46",
				RuleTitle: models.StringPtr("FIGHTING"),
				Text:      "Fighting rules.",
			},
		},
		[]models.Situation{
			{
				SituationEntry: models.SituationEntry{
					RuleID:        "63",
					SituationID:   "63.1",
					Question:      "Puck over glass?",
					Answer:        "Penalty per Rule 63.2.",
					RuleReference: []string{"63.2"},
				},
				Similarity: 0.9,
			},
		})

	assert.True(t, strings.HasPrefix(got, "USER_QUESTION: Is this a penalty?\n\n"))
	assert.Contains(t, got, "CONTEXT (relevant rule- and/or casebook excerpts):\n")
	assert.Contains(t, got, "RULES:\n\n")
	assert.Contains(t, got, "- 63.2.: DELAYING THE GAME - OBJECTS THROWN ON THE ICE\n  A player shall not throw objects.\n")
	assert.Contains(t, got, "- 46: FIGHTING\n  Fighting rules.\n")
	assert.Contains(t, got, "CASEBOOK:\n\n")
	assert.Contains(t, got, "- RULE 63 (Situation 63.1):\nSituation-Question: Puck over glass?\nSituation-Answer: Penalty per Rule 63.2.\n(Referenced Rules: 63.2.: DELAYING THE GAME - OBJECTS THROWN ON THE ICE)\n")
	assert.True(t, strings.HasSuffix(got, "\nPlease answer the USER_QUESTION based on the context above."))
}

func TestBuildWithoutContext(t *testing.T) {
	b := NewBuilder(testRulebook())
	got := b.Build("Anything?", nil, nil)
	assert.Contains(t, got, "No context found.\n\n")
	assert.NotContains(t, got, "RULES:")
	assert.NotContains(t, got, "CASEBOOK:")
}

func TestRuleHeading(t *testing.T) {
	assert.Equal(t, "63.2.: DELAYING THE GAME - OBJECTS THROWN ON THE ICE", RuleHeading(models.ScoredRule{
		RuleID:       "63.2.",
		RuleTitle:    models.StringPtr("DELAYING THE GAME"),
		SubruleTitle: models.StringPtr("OBJECTS THROWN ON THE ICE"),
	}))
	assert.Equal(t, "46: FIGHTING", RuleHeading(models.ScoredRule{
		RuleID:    "46",
		RuleTitle: models.StringPtr("FIGHTING"),
	}))
	// An empty subrule title renders like a missing one.
	assert.Equal(t, "46.1.: FIGHTING", RuleHeading(models.ScoredRule{
		RuleID:       "46.1.",
		RuleTitle:    models.StringPtr("FIGHTING"),
		SubruleTitle: models.StringPtr(""),
	}))
}

func TestExpandReferences(t *testing.T) {
	b := NewBuilder(testRulebook())

	assert.Equal(t, "None", b.ExpandReferences(nil))
	assert.Equal(t,
		"63.2.: DELAYING THE GAME - OBJECTS THROWN ON THE ICE, 27.1.: GOALKEEPER",
		b.ExpandReferences([]string{"63.2", "27.1"}))
	// Unknown IDs fall back to the raw citation.
	assert.Equal(t, "99.9", b.ExpandReferences([]string{"99.9"}))
}
