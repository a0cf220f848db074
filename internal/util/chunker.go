package util

import "strings"

// ChunkText splits cleaned text into overlapping windows of at most maxChars
// runes. Each window after the first starts overlap runes before the previous
// window's end, and the final window always reaches the end of the text.
// The result is always a slice, even for text that fits in a single chunk.
func ChunkText(text string, maxChars, overlap int) []string {
	if maxChars <= 0 {
		maxChars = 900
	}
	// An overlap at or beyond the window size would stall the offset.
	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	size := len(runes)
	if size == 0 {
		return []string{}
	}
	if size <= maxChars {
		return []string{string(runes)}
	}

	chunks := make([]string, 0, size/(maxChars-overlap)+1)
	start := 0
	for start < size {
		end := start + maxChars
		if end > size {
			end = size
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
		if end >= size {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
