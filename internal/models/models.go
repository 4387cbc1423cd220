package models

// ColorUnknown marks spans whose extractor could not determine a fill color.
// The classifier treats such spans as matching any signature color.
const ColorUnknown = -1

// Span is a contiguous run of text sharing one font signature, as produced
// by styled-text extraction from the source document.
type Span struct {
	Text       string     `json:"text"`
	FontSize   float64    `json:"size"`
	FontColor  int        `json:"color"`
	FontFamily string     `json:"font"`
	Dir        [2]float64 `json:"dir"`
	Page       int        `json:"page,omitempty"`
}

// Horizontal reports whether the span runs in normal reading direction.
func (s Span) Horizontal() bool {
	return s.Dir[0] == 1.0 && s.Dir[1] == 0.0
}

// Section is a top-level rulebook division. It is closed when the next
// section heading appears or input ends; closed sections own their rules.
type Section struct {
	SectionNumber *string `json:"section_number"`
	SectionName   *string `json:"section_name"`
	Rules         []*Rule `json:"section_rules"`
}

// Rule is a numbered rule within a section. If it has subrules, its own
// text fields stay null and the content lives on the subrules.
type Rule struct {
	Page                int        `json:"page"`
	RuleNumber          int        `json:"rule_number"`
	RuleName            *string    `json:"rule_name"`
	RuleText            *string    `json:"rule_text"`
	AppendixInformation []string   `json:"appendix_information"`
	RuleReference       []string   `json:"rule_reference"`
	Subrules            []*Subrule `json:"subrules"`
}

// Subrule is addressed by a dotted numeral under a rule (e.g. "1.2.3.").
type Subrule struct {
	Page                int      `json:"page"`
	SubruleNumber       string   `json:"subrule_number"`
	SubruleName         *string  `json:"subrule_name"`
	RuleText            *string  `json:"rule_text"`
	AppendixInformation []string `json:"appendix_information"`
	RuleReference       []string `json:"rule_reference"`
}

// RuleEntry is one flattened, embeddable rule: the unit the retrieval index
// and the rule lookup operate on. ID is the rule number for rules without
// subrules and the dotted subrule number otherwise.
type RuleEntry struct {
	ID           string  `json:"id"`
	RuleTitle    *string `json:"rule_title"`
	SubruleTitle *string `json:"subrule_title"`
	Text         string  `json:"text"`
}

// SituationEntry is one flattened casebook situation.
type SituationEntry struct {
	RuleID        string   `json:"rule_id"`
	SituationID   string   `json:"situation_id"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	RuleReference []string `json:"rule_reference"`
}

// CaseSection mirrors Section for the situation handbook.
type CaseSection struct {
	SectionNumber *string     `json:"section_number"`
	SectionName   *string     `json:"section_name"`
	Rules         []*CaseRule `json:"section_rules"`
}

// CaseRule groups the worked situations filed under one rule number.
type CaseRule struct {
	RuleNumber int              `json:"rule_number"`
	Situations []*CaseSituation `json:"situations"`
}

// CaseSituation is a worked question/answer example, optionally citing rules.
type CaseSituation struct {
	Number        string   `json:"number"`
	Question      *string  `json:"question"`
	Answer        *string  `json:"answer"`
	RuleReference []string `json:"rule_reference"`
}

// ChunkMeta maps an indexed chunk back to its parent rule.
type ChunkMeta struct {
	RuleID       string  `json:"rule_id"`
	ChunkText    string  `json:"chunk_text"`
	RuleTitle    *string `json:"rule_title"`
	SubruleTitle *string `json:"subrule_title"`
}

// ChunkHit is one retrieved chunk with its similarity score, ephemeral per query.
type ChunkHit struct {
	RuleID     string  `json:"rule_id"`
	Similarity float64 `json:"similarity"`
}

// ScoredRule is a rule-level relevance aggregate over its chunk hits.
type ScoredRule struct {
	RuleID       string  `json:"rule_id"`
	ScoreSum     float64 `json:"score_sum"`
	ScoreCount   int     `json:"score_count"`
	RuleTitle    *string `json:"rule_title"`
	SubruleTitle *string `json:"subrule_title"`
	Text         string  `json:"text"`
}

// Situation is a casebook entry admitted for a query, with its live score.
type Situation struct {
	SituationEntry
	Similarity float64 `json:"similarity"`
}

// Response is the answer returned for one query.
type Response struct {
	Answer     string       `json:"answer"`
	Prompt     string       `json:"prompt"`
	AllRules   []ScoredRule `json:"retrieved_all_rules"`
	TopRules   []ScoredRule `json:"retrieved_top_rules"`
	Situations []Situation  `json:"retrieved_situations"`
	Timestamp  string       `json:"timestamp"`
}

// StringPtr returns a pointer to s. Convenience for the nullable text fields.
func StringPtr(s string) *string { return &s }
