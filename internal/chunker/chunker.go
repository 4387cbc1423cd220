// Package chunker splits rule texts into embedding-sized chunks along
// sentence boundaries.
package chunker

import (
	"log"
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)

// Chunker packs sentences into chunks of at most MaxTokens tokens, with an
// optional sentence overlap between consecutive chunks.
type Chunker struct {
	// MaxTokens caps the token count per chunk. Tokens are approximated by
	// whitespace-separated words, which overestimates capacity slightly
	// against subword tokenizers but keeps chunking model-free.
	MaxTokens int
	// Overlap is the number of trailing sentences repeated at the start of
	// the next chunk.
	Overlap int
}

// New creates a chunker. maxTokens of 0 or less falls back to 256.
func New(maxTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Chunker{MaxTokens: maxTokens, Overlap: overlap}
}

// Chunk splits text into chunks. Every chunk except possibly an oversized
// single sentence stays within MaxTokens.
func (c *Chunker) Chunk(text string) []string {
	var chunks []string
	current := ""

	for _, sentence := range SplitSentences(text) {
		test := sentence
		if current != "" {
			test = current + " " + sentence
		}
		if countTokens(test) <= c.MaxTokens {
			current = test
			continue
		}
		if current == "" {
			// A single sentence over the cap still becomes its own chunk;
			// the embedder truncates it.
			log.Printf("warning: sentence exceeds %d tokens, embedding will truncate: %.60q", c.MaxTokens, sentence)
			chunks = append(chunks, sentence)
			continue
		}
		chunks = append(chunks, strings.TrimSpace(current))
		overlap := c.overlapTail(current)
		current = strings.TrimSpace(overlap + " " + sentence)
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// overlapTail returns the last Overlap sentences of a finished chunk, or the
// whole chunk when it has fewer.
func (c *Chunker) overlapTail(chunk string) string {
	if c.Overlap <= 0 {
		return ""
	}
	sentences := strings.Split(chunk, ". ")
	if len(sentences) < c.Overlap {
		return chunk
	}
	return strings.Join(sentences[len(sentences)-c.Overlap:], ". ")
}

// SplitSentences splits text on terminal punctuation, keeping the
// punctuation with its sentence. A trailing fragment without terminal
// punctuation becomes its own sentence.
func SplitSentences(text string) []string {
	var sentences []string
	consumed := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		consumed = loc[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func countTokens(text string) int {
	return len(strings.Fields(text))
}
