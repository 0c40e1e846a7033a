package ingest

import "strings"

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// SplitText cuts text into windows of size runes, each starting
// size-overlap runes after the previous one. Whitespace-only windows are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[i:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		i += size - overlap
	}
	return chunks
}
