package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("The puck is dropped. Play begins! Who touches it first? Unterminated tail")
	assert.Equal(t, []string{
		"The puck is dropped.",
		"Play begins!",
		"Who touches it first?",
		"Unterminated tail",
	}, got)
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c := New(256, 0)
	got := c.Chunk("A short rule. It fits easily.")
	assert.Equal(t, []string{"A short rule. It fits easily."}, got)
}

func TestChunkSplitsAtSentenceBoundary(t *testing.T) {
	c := New(6, 0)
	got := c.Chunk("One two three four five. Six seven eight nine ten. Done.")
	require.Len(t, got, 2)
	assert.Equal(t, "One two three four five.", got[0])
	assert.Equal(t, "Six seven eight nine ten. Done.", got[1])
}

func TestChunkOverlapRepeatsTrailingSentence(t *testing.T) {
	c := New(10, 1)
	got := c.Chunk("First sentence has five words. Second sentence also has words. Third sentence closes it out.")
	require.Len(t, got, 2)
	assert.Equal(t, "First sentence has five words. Second sentence also has words.", got[0])
	assert.True(t, strings.HasPrefix(got[1], "Second sentence also has words."),
		"second chunk should start with the overlapped sentence, got %q", got[1])
	assert.Contains(t, got[1], "Third sentence closes it out.")
}

func TestChunkOversizedSentenceKeptWhole(t *testing.T) {
	c := New(3, 0)
	got := c.Chunk("This single sentence is much longer than the cap.")
	assert.Equal(t, []string{"This single sentence is much longer than the cap."}, got)
}
