package classifier

import (
	"slices"

	"hockey-rules-rag/internal/models"
)

// Signature is the (sizes, color, families) triple that distinguishes one
// structural role in the source document. Matching is exact, except that a
// span carrying models.ColorUnknown matches any color.
type Signature struct {
	Sizes []float64 `yaml:"sizes"`
	Color int       `yaml:"color"`
	// AltColor is a second accepted color, or 0 when unused. Only the
	// reference signature needs it.
	AltColor int      `yaml:"alt_color,omitempty"`
	Fonts    []string `yaml:"fonts"`
}

// Matches reports whether the span carries this signature exactly.
func (s Signature) Matches(span models.Span) bool {
	return s.matchesSize(span.FontSize) && s.matchesColor(span.FontColor) && s.matchesFont(span.FontFamily)
}

func (s Signature) matchesSize(size float64) bool {
	return slices.Contains(s.Sizes, size)
}

func (s Signature) matchesColor(color int) bool {
	if color == models.ColorUnknown {
		return true
	}
	if color == s.Color {
		return true
	}
	return s.AltColor != 0 && color == s.AltColor
}

func (s Signature) matchesFont(font string) bool {
	return slices.Contains(s.Fonts, font)
}

// SignatureSet holds the signatures for every structural role.
type SignatureSet struct {
	PageNumber       Signature `yaml:"page_number"`
	SectionNumber    Signature `yaml:"section_number"`
	SectionName      Signature `yaml:"section_name"`
	RuleHeadline     Signature `yaml:"rule_headline"`
	SubruleHeadline  Signature `yaml:"subrule_headline"`
	BodyText         Signature `yaml:"body_text"`
	BodyTextHeadline Signature `yaml:"body_text_headline"`
	Appendix         Signature `yaml:"appendix"`
	Reference        Signature `yaml:"reference"`
}

func (s SignatureSet) all() []Signature {
	return []Signature{
		s.PageNumber, s.SectionNumber, s.SectionName, s.RuleHeadline,
		s.SubruleHeadline, s.BodyText, s.BodyTextHeadline, s.Appendix, s.Reference,
	}
}

func (s SignatureSet) sizeBounds() (min, max float64) {
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

// DefaultSignatures returns the font signatures measured from the 2024 IIHF
// rulebook. Documents typeset differently need their own set via config.
func DefaultSignatures() SignatureSet {
	return SignatureSet{
		PageNumber: Signature{
			Sizes: []float64{12.0},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Bold"},
		},
		SectionNumber: Signature{
			Sizes: []float64{12.0},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Bold"},
		},
		SectionName: Signature{
			Sizes: []float64{25.744544982910156},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Light"},
		},
		RuleHeadline: Signature{
			Sizes: []float64{11.0, 10.754817008972168},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		SubruleHeadline: Signature{
			Sizes: []float64{11.0, 11.109999656677246, 10.754817008972168},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		BodyText: Signature{
			Sizes: []float64{9.92471694946289, 10.023963928222656, 9.703460693359375},
			Color: 0,
			// Regular appears for roman numerals inside body text.
			Fonts: []string{"RobotoCondensed-Light", "RobotoCondensed-Regular"},
		},
		BodyTextHeadline: Signature{
			Sizes: []float64{10.0},
			Color: 0,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		Appendix: Signature{
			Sizes: []float64{9.75, 10.100000381469727},
			Color: 21407,
			Fonts: []string{"RobotoCondensed-Regular"},
		},
		Reference: Signature{
			Sizes:    []float64{9.75, 10.100000381469727, 9.53267765045166, 9.676623344421387, 9.848857879638672, 9.92471694946289},
			Color:    21407,
			AltColor: 2251163,
			Fonts:    []string{"RobotoCondensed-Regular", "RobotoCondensed-Light"},
		},
	}
}
