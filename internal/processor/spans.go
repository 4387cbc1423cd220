// Package processor produces the styled span stream the extractors consume,
// either from a JSON span dump or directly from a PDF.
package processor

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"

	"hockey-rules-rag/internal/corpus"
	"hockey-rules-rag/internal/models"
)

// LoadSpanDump reads spans from a JSON dump produced by an external
// styled-text extractor. Spans without an explicit direction are treated
// as horizontal.
func LoadSpanDump(path string) ([]models.Span, error) {
	var spans []models.Span
	if err := corpus.ReadJSON(path, &spans); err != nil {
		return nil, fmt.Errorf("loading span dump: %w", err)
	}
	for i := range spans {
		if spans[i].Dir == [2]float64{0, 0} {
			spans[i].Dir = [2]float64{1, 0}
		}
	}
	return spans, nil
}

// ExtractSpans reads styled spans from a PDF. Consecutive characters
// sharing font, size, and baseline are merged into one span. The PDF
// layer exposes no fill color, so every span carries models.ColorUnknown
// and color checks are skipped downstream.
func ExtractSpans(filePath string) ([]models.Span, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var spans []models.Span
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		spans = append(spans, pageSpans(page.Content().Text, pageNum)...)
	}
	return spans, nil
}

// pageSpans merges one page's characters into spans in reading order.
func pageSpans(texts []pdf.Text, pageNum int) []models.Span {
	if len(texts) == 0 {
		return nil
	}

	// Reading order: top to bottom (PDF y grows upward), then left to right.
	ordered := make([]pdf.Text, len(texts))
	copy(ordered, texts)
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].Y != ordered[b].Y {
			return ordered[a].Y > ordered[b].Y
		}
		return ordered[a].X < ordered[b].X
	})

	var spans []models.Span
	current := models.Span{
		FontSize:   ordered[0].FontSize,
		FontColor:  models.ColorUnknown,
		FontFamily: ordered[0].Font,
		Dir:        [2]float64{1, 0},
		Page:       pageNum,
	}
	currentY := ordered[0].Y

	for _, t := range ordered {
		if t.Font != current.FontFamily || t.FontSize != current.FontSize || t.Y != currentY {
			if current.Text != "" {
				spans = append(spans, current)
			}
			current = models.Span{
				FontSize:   t.FontSize,
				FontColor:  models.ColorUnknown,
				FontFamily: t.Font,
				Dir:        [2]float64{1, 0},
				Page:       pageNum,
			}
			currentY = t.Y
		}
		current.Text += t.S
	}
	if current.Text != "" {
		spans = append(spans, current)
	}
	return spans
}
