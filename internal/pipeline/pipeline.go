// Package pipeline runs one query end to end: embedding, retrieval, prompt
// construction, and answer generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hockey-rules-rag/internal/chunker"
	"hockey-rules-rag/internal/llm"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/prompt"
	"hockey-rules-rag/internal/retriever"
)

// QueryEmbedder embeds a user query into the index's vector space.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string, c *chunker.Chunker) ([]float64, error)
}

// AnswerGenerator produces an answer for a finished prompt.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// Pipeline wires the per-query components together.
type Pipeline struct {
	Embedder  QueryEmbedder
	Retriever *retriever.Retriever
	Prompt    *prompt.Builder
	Generator AnswerGenerator
	Chunker   *chunker.Chunker
}

// ProcessQuery answers one user question. Categorized generation failures
// become the answer text instead of an error, so callers always get a
// response to show; everything else fails the query.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string) (*models.Response, error) {
	queryEmbedding, err := p.Embedder.EmbedQuery(ctx, query, p.Chunker)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	allRules, topRules, err := p.Retriever.RetrieveRules(ctx, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("retrieving rules: %w", err)
	}
	situations, err := p.Retriever.RetrieveSituations(ctx, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("retrieving situations: %w", err)
	}

	promptText := p.Prompt.Build(query, topRules, situations)

	answer, err := p.Generator.GenerateAnswer(ctx, promptText)
	if err != nil {
		var llmErr *llm.Error
		if !errors.As(err, &llmErr) {
			return nil, fmt.Errorf("generating answer: %w", err)
		}
		answer = "Error occurred: " + llmErr.Message() + "."
	} else if len(topRules) == 0 && len(situations) == 0 {
		answer += formatFallbackRules(allRules)
	}

	return &models.Response{
		Answer:     answer,
		Prompt:     promptText,
		AllRules:   allRules,
		TopRules:   topRules,
		Situations: situations,
		Timestamp:  time.Now().Format(time.RFC3339),
	}, nil
}

// formatFallbackRules lists every retrieved rule with its score, shown when
// nothing cleared the admission thresholds.
func formatFallbackRules(allRules []models.ScoredRule) string {
	var sb strings.Builder
	sb.WriteString("\n\nPotentially relevant rules:\n")
	for _, rule := range allRules {
		fmt.Fprintf(&sb, "- %s (Score: %.4f)\n", prompt.RuleHeading(rule), rule.ScoreSum)
	}
	return sb.String()
}
