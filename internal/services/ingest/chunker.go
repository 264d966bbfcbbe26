package ingest

import (
	"strings"
)

type Chunk struct {
	ChunkIndex int
	PageIndex  int
	Content    string
}

// BuildChunks cuts page texts into windows of about targetTokens runes, each
// window repeating the last overlapTokens runes of the previous one. Japanese
// transcripts run close to one token per rune, so runes are the unit.
func BuildChunks(pages []string, targetTokens int, overlapTokens int) []Chunk {
	if targetTokens <= 0 {
		targetTokens = 600
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		overlapTokens = 0
	}

	chunks := make([]Chunk, 0, len(pages))
	for pageIdx, page := range pages {
		runes := []rune(strings.TrimSpace(page))
		for start := 0; start < len(runes); {
			end := min(start+targetTokens, len(runes))
			chunks = append(chunks, Chunk{
				ChunkIndex: len(chunks),
				PageIndex:  pageIdx + 1,
				Content:    string(runes[start:end]),
			})
			if end == len(runes) {
				break
			}
			start = end - overlapTokens
		}
	}
	return chunks
}
