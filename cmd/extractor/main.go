package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"hockey-rules-rag/internal/assembler"
	"hockey-rules-rag/internal/casebook"
	"hockey-rules-rag/internal/config"
	"hockey-rules-rag/internal/corpus"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/processor"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	rulebookSpans := flag.String("spans", "", "Path to rulebook span dump (JSON)")
	rulebookPDF := flag.String("pdf", "", "Path to rulebook PDF (used when no span dump is given)")
	casebookSpans := flag.String("casebook-spans", "", "Path to situation handbook span dump (JSON)")
	casebookPDF := flag.String("casebook-pdf", "", "Path to situation handbook PDF")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *rulebookSpans == "" && *rulebookPDF == "" && *casebookSpans == "" && *casebookPDF == "" {
		log.Fatal("Nothing to extract: pass -spans/-pdf and/or -casebook-spans/-casebook-pdf")
	}

	if *rulebookSpans != "" || *rulebookPDF != "" {
		extractRulebook(cfg, *rulebookSpans, *rulebookPDF)
	}
	if *casebookSpans != "" || *casebookPDF != "" {
		extractCasebook(cfg, *casebookSpans, *casebookPDF)
	}
}

func extractRulebook(cfg config.Config, spansPath, pdfPath string) {
	spans := loadSpans(spansPath, pdfPath)
	log.Printf("Processing %d rulebook spans", len(spans))

	startTime := time.Now()
	sections := assembler.New(cfg.RulebookSignatures).Process(spans)

	ruleCount := 0
	for _, section := range sections {
		ruleCount += len(section.Rules)
	}
	log.Printf("Assembled %d sections with %d rules in %v", len(sections), ruleCount, time.Since(startTime))

	writeJSON(cfg.Paths.RulesJSON, sections)
	log.Printf("Wrote rulebook tree to %s", cfg.Paths.RulesJSON)

	entries := corpus.ConvertRules(sections)
	writeJSON(cfg.Paths.RuleEntries, entries)
	log.Printf("Wrote %d flattened rule entries to %s", len(entries), cfg.Paths.RuleEntries)
}

func extractCasebook(cfg config.Config, spansPath, pdfPath string) {
	spans := loadSpans(spansPath, pdfPath)
	log.Printf("Processing %d casebook spans", len(spans))

	startTime := time.Now()
	sections := casebook.New(cfg.CasebookSignatures).Process(spans)

	situationCount := 0
	for _, section := range sections {
		for _, rule := range section.Rules {
			situationCount += len(rule.Situations)
		}
	}
	log.Printf("Extracted %d sections with %d situations in %v", len(sections), situationCount, time.Since(startTime))

	writeJSON(cfg.Paths.SituationsJSON, sections)
	log.Printf("Wrote casebook tree to %s", cfg.Paths.SituationsJSON)

	entries := corpus.ConvertSituations(sections)
	writeJSON(cfg.Paths.SituationItems, entries)
	log.Printf("Wrote %d flattened situations to %s", len(entries), cfg.Paths.SituationItems)
}

func loadSpans(spansPath, pdfPath string) []models.Span {
	if spansPath != "" {
		spans, err := processor.LoadSpanDump(spansPath)
		if err != nil {
			log.Fatalf("Failed to load span dump: %v", err)
		}
		return spans
	}

	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		log.Fatalf("PDF file does not exist: %s", pdfPath)
	}
	spans, err := processor.ExtractSpans(pdfPath)
	if err != nil {
		log.Fatalf("Failed to extract spans from PDF: %v", err)
	}
	return spans
}

func writeJSON(path string, v any) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := corpus.WriteJSON(path, v); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
}
