// Package retriever turns query embeddings into ranked rules and worked
// situations by searching a chunk backend and aggregating chunk hits at the
// rule level. Backends are either the in-process flat indices with their
// mapping tables, or the pgvector store.
package retriever

import (
	"context"
	"fmt"
	"log"
	"sort"

	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/vectorindex"
)

// SearchIndex is the similarity search a retriever needs from a flat index.
type SearchIndex interface {
	Search(query []float64, k int) ([]vectorindex.Hit, error)
}

// ChunkSource returns candidate chunk hits for a query embedding.
type ChunkSource interface {
	SearchChunks(ctx context.Context, embedding []float64, limit int) ([]models.ChunkHit, error)
}

// SituationSource returns candidate situations with their similarities.
type SituationSource interface {
	SearchSituations(ctx context.Context, embedding []float64, limit int) ([]models.Situation, error)
}

// RuleLookup resolves rule IDs to their full flattened entries.
type RuleLookup interface {
	GetRuleByID(id string) (models.RuleEntry, bool)
}

// Params are the retrieval knobs.
type Params struct {
	// TopKChunks is how many chunks the rulebook search returns.
	TopKChunks int
	// TopKRules caps how many admitted rules reach the prompt.
	TopKRules int
	// TopKSituations is how many candidates the casebook search returns.
	TopKSituations int
	// Threshold is the aggregate score a rule must exceed to be admitted.
	Threshold float64
	// SituationThreshold is the minimum similarity a situation must reach.
	SituationThreshold float64
}

// Retriever searches the rulebook and casebook backends for one query.
type Retriever struct {
	params Params

	chunks     ChunkSource
	situations SituationSource

	rulebook RuleLookup
}

// New wires a retriever over in-process flat indices. Mappings are aligned
// with index insert order: position i of the index holds the embedding of
// mapping entry i.
func New(params Params, rulebookIndex, casebookIndex SearchIndex,
	rulebookMapping []models.ChunkMeta, casebookMapping []models.SituationEntry,
	rulebook RuleLookup) *Retriever {
	return NewFromSources(params,
		indexChunkSource{index: rulebookIndex, mapping: rulebookMapping},
		indexSituationSource{index: casebookIndex, mapping: casebookMapping},
		rulebook)
}

// NewFromSources wires a retriever over arbitrary chunk and situation
// backends, such as the pgvector store.
func NewFromSources(params Params, chunks ChunkSource, situations SituationSource, rulebook RuleLookup) *Retriever {
	return &Retriever{
		params:     params,
		chunks:     chunks,
		situations: situations,
		rulebook:   rulebook,
	}
}

// indexChunkSource adapts a flat index plus its mapping table to the chunk
// backend interface. Hits without a mapping entry are dropped.
type indexChunkSource struct {
	index   SearchIndex
	mapping []models.ChunkMeta
}

func (s indexChunkSource) SearchChunks(_ context.Context, embedding []float64, limit int) ([]models.ChunkHit, error) {
	hits, err := s.index.Search(embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching rulebook index: %w", err)
	}

	var chunks []models.ChunkHit
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(s.mapping) {
			log.Printf("warning: chunk hit %d has no mapping entry, dropping", hit.Index)
			continue
		}
		chunks = append(chunks, models.ChunkHit{
			RuleID:     s.mapping[hit.Index].RuleID,
			Similarity: hit.Similarity,
		})
	}
	return chunks, nil
}

// indexSituationSource adapts a flat index plus its mapping table to the
// situation backend interface.
type indexSituationSource struct {
	index   SearchIndex
	mapping []models.SituationEntry
}

func (s indexSituationSource) SearchSituations(_ context.Context, embedding []float64, limit int) ([]models.Situation, error) {
	hits, err := s.index.Search(embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching casebook index: %w", err)
	}

	var situations []models.Situation
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(s.mapping) {
			log.Printf("warning: situation hit %d has no mapping entry, dropping", hit.Index)
			continue
		}
		situations = append(situations, models.Situation{
			SituationEntry: s.mapping[hit.Index],
			Similarity:     hit.Similarity,
		})
	}
	return situations, nil
}

// RetrieveChunks searches the rulebook backend for the query's top chunks.
func (r *Retriever) RetrieveChunks(ctx context.Context, queryEmbedding []float64) ([]models.ChunkHit, error) {
	return r.chunks.SearchChunks(ctx, queryEmbedding, r.params.TopKChunks)
}

// AggregateRules groups chunk hits by rule, sums their similarities, and
// splits the ranking into the full list and the admitted top rules. A rule
// is admitted only when its score sum strictly exceeds the threshold; ties
// in the ranking keep first-seen order.
func (r *Retriever) AggregateRules(chunks []models.ChunkHit) (all, top []models.ScoredRule) {
	byID := make(map[string]*models.ScoredRule)
	var order []string
	for _, chunk := range chunks {
		if scored, ok := byID[chunk.RuleID]; ok {
			scored.ScoreSum += chunk.Similarity
			scored.ScoreCount++
			continue
		}
		byID[chunk.RuleID] = &models.ScoredRule{
			RuleID:     chunk.RuleID,
			ScoreSum:   chunk.Similarity,
			ScoreCount: 1,
		}
		order = append(order, chunk.RuleID)
	}

	all = make([]models.ScoredRule, 0, len(order))
	for _, id := range order {
		scored := *byID[id]
		if entry, ok := r.rulebook.GetRuleByID(id); ok {
			scored.RuleTitle = entry.RuleTitle
			scored.SubruleTitle = entry.SubruleTitle
			scored.Text = entry.Text
		} else {
			log.Printf("warning: rule %q not found in rulebook, returning scores only", id)
		}
		all = append(all, scored)
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].ScoreSum > all[b].ScoreSum
	})

	for _, scored := range all {
		if scored.ScoreSum > r.params.Threshold {
			top = append(top, scored)
		}
	}
	if len(top) > r.params.TopKRules {
		top = top[:r.params.TopKRules]
	}
	return all, top
}

// RetrieveRules is the full chunk-to-rule pipeline for one query embedding.
func (r *Retriever) RetrieveRules(ctx context.Context, queryEmbedding []float64) (all, top []models.ScoredRule, err error) {
	chunks, err := r.RetrieveChunks(ctx, queryEmbedding)
	if err != nil {
		return nil, nil, err
	}
	all, top = r.AggregateRules(chunks)
	return all, top, nil
}

// RetrieveSituations searches the casebook backend and returns the
// candidates meeting the situation threshold, in ranking order.
func (r *Retriever) RetrieveSituations(ctx context.Context, queryEmbedding []float64) ([]models.Situation, error) {
	candidates, err := r.situations.SearchSituations(ctx, queryEmbedding, r.params.TopKSituations)
	if err != nil {
		return nil, err
	}

	var situations []models.Situation
	for _, candidate := range candidates {
		if candidate.Similarity < r.params.SituationThreshold {
			continue
		}
		situations = append(situations, candidate)
	}
	return situations, nil
}
