package ingestion_engine

import (
	"regexp"
	"strings"

	"github.com/somshekargr/studybuddy/internal/models"
)

// Chunk is one bounded slice of page text, the atomic retrieval unit.
// Index is global across the whole document, never reset per page.
type Chunk struct {
	Index      int
	Content    string
	PageNumber int
}

// sentenceEnd matches a sentence terminator followed by whitespace. The
// terminator stays with the sentence it closes.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// ChunkPages splits page text into chunks of at most chunkSize characters on
// sentence boundaries, seeding each new chunk with the trailing overlap
// characters of the previous buffer. A single sentence longer than chunkSize
// is never split further; it is emitted as its own oversized chunk.
// Empty or whitespace-only pages produce no chunks.
func ChunkPages(pages []models.Page, chunkSize, overlap int) []Chunk {
	var all []Chunk
	index := 0

	emit := func(buf string, pageNumber int) {
		content := strings.TrimSpace(buf)
		if content == "" {
			return
		}
		all = append(all, Chunk{Index: index, Content: content, PageNumber: pageNumber})
		index++
	}

	for _, page := range pages {
		text := page.Text
		if strings.TrimSpace(text) == "" {
			continue
		}

		var buf string
		for _, sentence := range splitSentences(text) {
			if len(buf)+len(sentence) <= chunkSize {
				buf += sentence + " "
				continue
			}

			emit(buf, page.Number)

			// Seed the next buffer with the tail of the one just closed.
			tail := buf
			if len(buf) > overlap {
				tail = buf[len(buf)-overlap:]
			}
			buf = tail + sentence + " "
		}

		emit(buf, page.Number)
	}

	return all
}

// splitSentences breaks text on `.!?` followed by whitespace, keeping the
// terminator with its sentence. The remainder after the last terminator is
// the final sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
