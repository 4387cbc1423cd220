// Package vectorindex provides an exact inner-product similarity index over
// L2-normalized embeddings, equivalent to cosine similarity search.
package vectorindex

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
)

// Hit is one search result: the position of the stored vector and its
// similarity to the query.
type Hit struct {
	Index      int
	Similarity float64
}

// Flat is an exact, in-memory index. Vectors are normalized on insert, so
// the inner product at search time is the cosine similarity. Safe for
// concurrent use.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float64
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Add appends vectors to the index. Positions are assigned in insert order
// and never change, so they stay aligned with external metadata.
func (f *Flat) Add(vectors ...[]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), f.dim)
		}
		f.vectors = append(f.vectors, Normalize(v))
	}
	return nil
}

// Search returns the k most similar stored vectors, most similar first.
// Ties keep insert order. Asking for more results than stored returns all.
func (f *Flat) Search(query []float64, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dim)
	}
	q := Normalize(query)

	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Index: i, Similarity: dot(q, v)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

type indexFile struct {
	Dim     int
	Vectors [][]float64
}

// Save writes the index to path.
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(indexFile{Dim: f.dim, Vectors: f.vectors}); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// Load reads an index previously written with Save.
func Load(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()

	var data indexFile
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	return &Flat{dim: data.Dim, vectors: data.Vectors}, nil
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func Normalize(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	out := make([]float64, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
