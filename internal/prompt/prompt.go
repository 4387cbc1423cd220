// Package prompt renders the retrieved context into the chat prompt sent to
// the language model.
package prompt

import (
	"fmt"
	"strings"

	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/retriever"
)

// Builder formats prompts, resolving cited rule IDs through the rulebook.
type Builder struct {
	rulebook retriever.RuleLookup
}

// NewBuilder creates a prompt builder backed by the given rule lookup.
func NewBuilder(rulebook retriever.RuleLookup) *Builder {
	return &Builder{rulebook: rulebook}
}

// Build renders the user question with the admitted rules and situations
// into one prompt string.
func (b *Builder) Build(query string, topRules []models.ScoredRule, situations []models.Situation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "USER_QUESTION: %s\n\n", query)
	sb.WriteString("CONTEXT (relevant rule- and/or casebook excerpts):\n")

	if len(topRules) > 0 {
		sb.WriteString("RULES:\n\n")
	}
	for _, rule := range topRules {
		fmt.Fprintf(&sb, "- %s\n  %s\n", RuleHeading(rule), rule.Text)
	}
	if len(topRules) > 0 {
		sb.WriteString("\n\n")
	}

	if len(situations) > 0 {
		sb.WriteString("CASEBOOK:\n\n")
	}
	for _, situation := range situations {
		fmt.Fprintf(&sb, "- RULE %s (Situation %s):\nSituation-Question: %s\nSituation-Answer: %s\n(Referenced Rules: %s)\n",
			situation.RuleID, situation.SituationID, situation.Question, situation.Answer,
			b.ExpandReferences(situation.RuleReference))
	}

	if len(topRules) == 0 && len(situations) == 0 {
		sb.WriteString("No context found.\n\n")
	}

	sb.WriteString("\nPlease answer the USER_QUESTION based on the context above.")
	return sb.String()
}

// RuleHeading renders "id: title" or "id: title - subtitle" for subrules
// that carry their own title.
func RuleHeading(rule models.ScoredRule) string {
	title := deref(rule.RuleTitle)
	if strings.Contains(rule.RuleID, ".") && deref(rule.SubruleTitle) != "" {
		return fmt.Sprintf("%s: %s - %s", rule.RuleID, title, deref(rule.SubruleTitle))
	}
	return fmt.Sprintf("%s: %s", rule.RuleID, title)
}

// ExpandReferences renders a situation's cited rule IDs as a comma-joined
// list of "id: title" headings, falling back to the raw ID when the
// rulebook has no entry for it. A nil list renders as "None".
func (b *Builder) ExpandReferences(refs []string) string {
	if refs == nil {
		return "None"
	}
	var parts []string
	for _, ref := range refs {
		entry, ok := b.rulebook.GetRuleByID(ref)
		if !ok {
			parts = append(parts, ref)
			continue
		}
		title := deref(entry.RuleTitle)
		if entry.SubruleTitle != nil && deref(entry.SubruleTitle) != title {
			parts = append(parts, fmt.Sprintf("%s: %s - %s", entry.ID, title, deref(entry.SubruleTitle)))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", entry.ID, title))
		}
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
