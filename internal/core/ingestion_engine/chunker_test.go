package ingestion_engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somshekargr/studybuddy/internal/models"
)

func TestChunkPages_SentenceBoundariesAndOverlap(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "Cats are mammals. Dogs are mammals too. Mammals breathe air."},
	}

	chunks := ChunkPages(pages, 30, 5)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Cats are mammals.", chunks[0].Content)
	assert.Equal(t, "als. Dogs are mammals too.", chunks[1].Content)
	assert.Equal(t, "too. Mammals breathe air.", chunks[2].Content)

	// Each later chunk starts with the tail of the previous buffer.
	assert.True(t, strings.HasPrefix(chunks[1].Content, "als."))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "too."))
}

func TestChunkPages_RespectsSizeBound(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 50)
	chunks := ChunkPages([]models.Page{{Number: 1, Text: text}}, 100, 20)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 100+20, "chunk %d too long: %q", c.Index, c.Content)
	}
}

func TestChunkPages_GlobalIndexAcrossPages(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "First page sentence one. First page sentence two."},
		{Number: 2, Text: "Second page sentence one. Second page sentence two."},
	}

	chunks := ChunkPages(pages, 30, 5)
	require.Greater(t, len(chunks), 2)

	for n, c := range chunks {
		assert.Equal(t, n, c.Index)
	}

	// Page numbers carry through and never decrease.
	last := 0
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.PageNumber, last)
		last = c.PageNumber
	}
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[len(chunks)-1].PageNumber)
}

func TestChunkPages_OversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 120) + ". "
	pages := []models.Page{{Number: 1, Text: "Tiny. " + long + "End."}}

	chunks := ChunkPages(pages, 50, 10)
	require.NotEmpty(t, chunks)

	found := false
	for _, c := range chunks {
		if len(c.Content) > 50 {
			// The oversized sentence is emitted whole, never split.
			assert.Contains(t, c.Content, strings.Repeat("x", 120))
			found = true
		}
	}
	assert.True(t, found, "oversized sentence should survive intact")
}

func TestChunkPages_SkipsBlankPages(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "   \n\t  "},
		{Number: 2, Text: ""},
		{Number: 3, Text: "Real content lives here."},
	}

	chunks := ChunkPages(pages, 500, 50)
	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].PageNumber)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkPages_SmallTextSingleChunk(t *testing.T) {
	chunks := ChunkPages([]models.Page{{Number: 1, Text: "One sentence only."}}, 500, 50)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One sentence only.", chunks[0].Content)
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First. Second! Third? Trailing without terminator")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First.", sentences[0])
	assert.Equal(t, "Second!", sentences[1])
	assert.Equal(t, "Third?", sentences[2])
	assert.Equal(t, "Trailing without terminator", sentences[3])
}
