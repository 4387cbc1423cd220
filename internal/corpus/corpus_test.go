package corpus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hockey-rules-rag/internal/models"
)

func TestConvertRulesFlattensAndResolves(t *testing.T) {
	sections := []*models.Section{
		{
			SectionNumber: models.StringPtr("SECTION 01"),
			Rules: []*models.Rule{
				{
					RuleNumber: 1,
					RuleName:   models.StringPtr("RINK"),
					Subrules: []*models.Subrule{
						{
							SubruleNumber: "1.1.",
							SubruleName:   models.StringPtr("DIMENSIONS"),
							RuleText:      models.StringPtr("The rink must conform {rule_reference_0} in all venues."),
							RuleReference: []string{"Rule 2 – Dimensions"},
						},
						{
							SubruleNumber: "1.2.",
							// No text: contributes no entry.
						},
					},
				},
				{
					RuleNumber: 2,
					RuleName:   models.StringPtr("GOALS"),
					RuleText:   models.StringPtr("Goals stand on the goal line."),
				},
			},
		},
	}

	entries := ConvertRules(sections)
	require.Len(t, entries, 2)

	assert.Equal(t, "1.1.", entries[0].ID)
	assert.Equal(t, "RINK", *entries[0].RuleTitle)
	assert.Equal(t, "DIMENSIONS", *entries[0].SubruleTitle)
	assert.Equal(t, "The rink must conform (Rule 2 – Dimensions) in all venues.", entries[0].Text)

	assert.Equal(t, "2", entries[1].ID)
	assert.Nil(t, entries[1].SubruleTitle)
	assert.Equal(t, "Goals stand on the goal line.", entries[1].Text)
}

func TestConvertRulesMissingReference(t *testing.T) {
	sections := []*models.Section{
		{
			Rules: []*models.Rule{
				{
					RuleNumber: 5,
					RuleText:   models.StringPtr("See {rule_reference_3} for details."),
				},
			},
		},
	}

	entries := ConvertRules(sections)
	require.Len(t, entries, 1)
	assert.Equal(t, "See [Missing Reference 3] for details.", entries[0].Text)
}

func TestConvertSituations(t *testing.T) {
	sections := []*models.CaseSection{
		{
			Rules: []*models.CaseRule{
				{
					RuleNumber: 63,
					Situations: []*models.CaseSituation{
						{
							Number:        "63.1",
							Question:      models.StringPtr("Is this delaying the game?"),
							Answer:        models.StringPtr("Yes, per Rule 63.2."),
							RuleReference: []string{"63.2"},
						},
						{
							Number: "63.2",
						},
					},
				},
			},
		},
	}

	entries := ConvertSituations(sections)
	require.Len(t, entries, 2)
	assert.Equal(t, "63", entries[0].RuleID)
	assert.Equal(t, "63.1", entries[0].SituationID)
	assert.Equal(t, "Is this delaying the game?", entries[0].Question)
	assert.Equal(t, []string{"63.2"}, entries[0].RuleReference)
	assert.Equal(t, "", entries[1].Question)
}

func TestRuleBookLookupNormalizesID(t *testing.T) {
	book := NewRuleBook([]models.RuleEntry{
		{ID: "1.2.", Text: "subrule text"},
		{ID: "46", Text: "main rule text"},
	})

	entry, ok := book.GetRuleByID("1.2")
	require.True(t, ok)
	assert.Equal(t, "subrule text", entry.Text)

	entry, ok = book.GetRuleByID("1.2.")
	require.True(t, ok)
	assert.Equal(t, "subrule text", entry.Text)

	// Main-rule IDs carry no dot, so the dotted lookup form misses them.
	_, ok = book.GetRuleByID("46")
	assert.False(t, ok)

	_, ok = book.GetRuleByID("99.9")
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.json")
	in := []models.RuleEntry{{ID: "10.1.", Text: "some text"}}
	require.NoError(t, WriteJSON(path, in))

	book, err := LoadRuleBook(path)
	require.NoError(t, err)
	entry, ok := book.GetRuleByID("10.1")
	require.True(t, ok)
	assert.Equal(t, "some text", entry.Text)
}
