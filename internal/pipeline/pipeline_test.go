package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hockey-rules-rag/internal/chunker"
	"hockey-rules-rag/internal/llm"
	"hockey-rules-rag/internal/models"
	"hockey-rules-rag/internal/prompt"
	"hockey-rules-rag/internal/retriever"
	"hockey-rules-rag/internal/vectorindex"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(ctx context.Context, query string, c *chunker.Chunker) ([]float64, error) {
	return []float64{1, 0}, nil
}

type stubGenerator struct {
	answer string
	err    error
}

func (s stubGenerator) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	return s.answer, s.err
}

type stubRulebook map[string]models.RuleEntry

func (s stubRulebook) GetRuleByID(id string) (models.RuleEntry, bool) {
	entry, ok := s[id]
	return entry, ok
}

func newPipeline(t *testing.T, gen stubGenerator, chunkSims, situationSims []float64) *Pipeline {
	t.Helper()

	rulebookIndex := vectorindex.NewFlat(2)
	mapping := make([]models.ChunkMeta, len(chunkSims))
	for i, sim := range chunkSims {
		// Cosine of the stored vector against query (1, 0) equals sim.
		require.NoError(t, rulebookIndex.Add([]float64{sim, similComplement(sim)}))
		mapping[i] = models.ChunkMeta{RuleID: "1.1."}
	}

	casebookIndex := vectorindex.NewFlat(2)
	casebookMapping := make([]models.SituationEntry, len(situationSims))
	for i, sim := range situationSims {
		require.NoError(t, casebookIndex.Add([]float64{sim, similComplement(sim)}))
		casebookMapping[i] = models.SituationEntry{RuleID: "63", SituationID: "63.1", Question: "q", Answer: "a"}
	}

	book := stubRulebook{"1.1.": {ID: "1.1.", RuleTitle: models.StringPtr("RINK"), Text: "rink text"}}
	r := retriever.New(retriever.Params{
		TopKChunks:         10,
		TopKRules:          3,
		TopKSituations:     2,
		Threshold:          0.7,
		SituationThreshold: 0.8,
	}, rulebookIndex, casebookIndex, mapping, casebookMapping, book)

	return &Pipeline{
		Embedder:  stubEmbedder{},
		Retriever: r,
		Prompt:    prompt.NewBuilder(book),
		Generator: gen,
		Chunker:   chunker.New(256, 1),
	}
}

func similComplement(sim float64) float64 {
	// Second component of a unit vector whose cosine against (1, 0) is sim.
	return math.Sqrt(1 - sim*sim)
}

func TestProcessQueryWithContext(t *testing.T) {
	p := newPipeline(t, stubGenerator{answer: "Yes, that is icing."}, []float64{0.9}, []float64{0.95})

	resp, err := p.ProcessQuery(context.Background(), "Is this icing?")
	require.NoError(t, err)

	assert.Equal(t, "Yes, that is icing.", resp.Answer)
	assert.Contains(t, resp.Prompt, "USER_QUESTION: Is this icing?")
	assert.Len(t, resp.TopRules, 1)
	assert.Len(t, resp.Situations, 1)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestProcessQueryFallbackListsAllRules(t *testing.T) {
	// Similarities too low for admission: no top rules, no situations.
	p := newPipeline(t, stubGenerator{answer: "I couldn't come up with an answer."}, []float64{0.3}, []float64{0.2})

	resp, err := p.ProcessQuery(context.Background(), "Something obscure?")
	require.NoError(t, err)

	assert.Empty(t, resp.TopRules)
	assert.Empty(t, resp.Situations)
	assert.Contains(t, resp.Answer, "Potentially relevant rules:")
	assert.Contains(t, resp.Answer, "1.1.: RINK")
	assert.Contains(t, resp.Answer, "(Score: 0.3000)")
}

func TestProcessQueryCategorizedFailureBecomesAnswer(t *testing.T) {
	gen := stubGenerator{err: &llm.Error{Category: llm.CategoryTimeout, Err: errors.New("deadline")}}
	p := newPipeline(t, gen, []float64{0.9}, nil)

	resp, err := p.ProcessQuery(context.Background(), "Is this icing?")
	require.NoError(t, err)
	assert.Equal(t, "Error occurred: LLM API error, request timed out.", resp.Answer)
}

func TestProcessQueryUnknownFailureFails(t *testing.T) {
	gen := stubGenerator{err: errors.New("boom")}
	p := newPipeline(t, gen, []float64{0.9}, nil)

	_, err := p.ProcessQuery(context.Background(), "Is this icing?")
	assert.Error(t, err)
}
