// Package corpus materializes the assembled document trees into the flat,
// embeddable entries the retrieval side works with, and loads them back.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/references"
)

// ConvertRules flattens the rulebook tree into one entry per text-bearing
// rule or subrule, resolving the embedded reference placeholders. Rules
// whose content lives entirely on subrules contribute no entry themselves.
func ConvertRules(sections []*models.Section) []models.RuleEntry {
	var entries []models.RuleEntry
	for _, section := range sections {
		for _, rule := range section.Rules {
			if rule.RuleText != nil && *rule.RuleText != "" {
				entries = append(entries, models.RuleEntry{
					ID:        strconv.Itoa(rule.RuleNumber),
					RuleTitle: rule.RuleName,
					Text:      references.Resolve(*rule.RuleText, rule.RuleReference),
				})
			}
			for _, subrule := range rule.Subrules {
				if subrule.RuleText == nil || *subrule.RuleText == "" {
					continue
				}
				entries = append(entries, models.RuleEntry{
					ID:           subrule.SubruleNumber,
					RuleTitle:    rule.RuleName,
					SubruleTitle: subrule.SubruleName,
					Text:         references.Resolve(*subrule.RuleText, subrule.RuleReference),
				})
			}
		}
	}
	return entries
}

// ConvertSituations flattens the casebook tree into one entry per situation.
func ConvertSituations(sections []*models.CaseSection) []models.SituationEntry {
	var entries []models.SituationEntry
	for _, section := range sections {
		for _, rule := range section.Rules {
			for _, situation := range rule.Situations {
				entries = append(entries, models.SituationEntry{
					RuleID:        strconv.Itoa(rule.RuleNumber),
					SituationID:   situation.Number,
					Question:      deref(situation.Question),
					Answer:        deref(situation.Answer),
					RuleReference: situation.RuleReference,
				})
			}
		}
	}
	return entries
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RuleBook provides rule lookup by ID over the flattened entries.
type RuleBook struct {
	entries []models.RuleEntry
	byID    map[string]int
}

// NewRuleBook indexes the given entries.
func NewRuleBook(entries []models.RuleEntry) *RuleBook {
	byID := make(map[string]int, len(entries))
	for i, entry := range entries {
		byID[entry.ID] = i
	}
	return &RuleBook{entries: entries, byID: byID}
}

// LoadRuleBook reads flattened entries from a JSON file.
func LoadRuleBook(path string) (*RuleBook, error) {
	var entries []models.RuleEntry
	if err := ReadJSON(path, &entries); err != nil {
		return nil, fmt.Errorf("loading rulebook: %w", err)
	}
	return NewRuleBook(entries), nil
}

// Entries returns all entries in document order.
func (b *RuleBook) Entries() []models.RuleEntry {
	return b.entries
}

// GetRuleByID looks up an entry by its subrule ID. The candidate is
// normalized to the trailing-dot form the extraction produces, so "1.2"
// and "1.2." address the same entry.
func (b *RuleBook) GetRuleByID(ruleID string) (models.RuleEntry, bool) {
	normalized := strings.TrimRight(ruleID, ".") + "."
	i, ok := b.byID[normalized]
	if !ok {
		return models.RuleEntry{}, false
	}
	return b.entries[i], true
}

// WriteJSON marshals v with indentation and writes it to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads the JSON file at path into out.
func ReadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
