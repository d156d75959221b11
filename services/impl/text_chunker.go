package impl

import "strings"

const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 200
)

// ChunkText splits text into overlapping, sentence-aware chunks. Sizes and
// offsets are measured in runes, never bytes, so a cut can't land inside a
// multi-byte character. The split point for each window is searched in its
// last 20%: first a sentence terminator (., !, ? followed by whitespace),
// then a blank line, then a newline, else a hard cut at chunkSize. The next
// window starts at end-chunkOverlap but always strictly after the previous
// start, so the walk terminates. Empty chunks are elided.
//
// Deterministic: the same input always yields the same partition.
func ChunkText(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findSplitPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
		next := end - chunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// findSplitPoint looks backwards through the last 20% of the window for the
// best boundary, preferring sentence ends over paragraph breaks over line
// breaks.
func findSplitPoint(runes []rune, start, end int) int {
	windowStart := end - (end-start)/5
	if windowStart <= start {
		windowStart = start + 1
	}

	// Sentence terminator followed by whitespace; split after the space so
	// the terminator stays with its sentence.
	for i := end - 1; i >= windowStart; i-- {
		if isSpace(runes[i]) && i > 0 {
			switch runes[i-1] {
			case '.', '!', '?':
				return i + 1
			}
		}
	}

	for i := end - 2; i >= windowStart; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}

	for i := end - 1; i >= windowStart; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}

	return end
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
