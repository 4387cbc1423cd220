// Package embedding generates text embeddings through the Ollama API.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"hockey-rules-rag/internal/chunker"
	"hockey-rules-rag/internal/vectorindex"
)

// OllamaEmbedder generates embeddings using the Ollama API.
type OllamaEmbedder struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// MaxConcurrent limits parallel embedding requests; local Ollama
	// instances degrade badly past a handful of concurrent calls.
	MaxConcurrent int
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls back
// to the OLLAMA_HOST environment configuration.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parsing ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:        client,
		Model:         model,
		MaxRetries:    3,
		Timeout:       time.Second * 30,
		MaxConcurrent: 3,
	}, nil
}

// EmbedText generates an embedding for one text, retrying transient
// failures with linear backoff.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			time.Sleep(time.Duration(retries) * time.Second)
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	return resp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts in parallel. The
// result is index-aligned with the input.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return e.EmbedBatchWithProgress(ctx, texts, nil)
}

// EmbedBatchWithProgress generates embeddings with progress reporting.
func (e *OllamaEmbedder) EmbedBatchWithProgress(ctx context.Context, texts []string,
	progressFunc func(processed, total int)) ([][]float64, error) {

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.MaxConcurrent)

	embeddings := make([][]float64, len(texts))

	var mu sync.Mutex
	processed := 0
	total := len(texts)

	errChan := make(chan error, total)

	for i := range texts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int) {
			defer func() {
				wg.Done()
				<-semaphore
			}()

			embedding, err := e.EmbedText(ctx, texts[i])
			if err != nil {
				errChan <- fmt.Errorf("failed to embed text %d: %w", i, err)
				return
			}

			mu.Lock()
			embeddings[i] = embedding
			processed++
			if progressFunc != nil {
				progressFunc(processed, total)
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	return embeddings, nil
}

// EmbedQuery embeds a user query. Queries longer than the chunker's cap are
// split, and the chunk embeddings are averaged; the result is always
// normalized to unit length.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, query string, c *chunker.Chunker) ([]float64, error) {
	chunks := c.Chunk(query)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("query produced no chunks")
	}

	embeddings, err := e.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	mean := make([]float64, len(embeddings[0]))
	for _, embedding := range embeddings {
		if len(embedding) != len(mean) {
			return nil, fmt.Errorf("inconsistent embedding dimensions: %d and %d", len(mean), len(embedding))
		}
		for i, x := range embedding {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(embeddings))
	}

	return vectorindex.Normalize(mean), nil
}
