package impl

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	chunks := ChunkText("hello world", DefaultChunkSize, DefaultChunkOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Nil(t, ChunkText("", DefaultChunkSize, DefaultChunkOverlap))
	assert.Nil(t, ChunkText("   \n\t  ", DefaultChunkSize, DefaultChunkOverlap))
}

func TestChunkTextDeterminism(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	first := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	second := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	assert.Equal(t, first, second)
}

func TestChunkTextBounds(t *testing.T) {
	text := strings.Repeat("Some sentences are short. Others ramble on for quite a while before stopping. ", 100)
	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), DefaultChunkSize, "chunk %d exceeds chunk size", i)
		assert.NotEmpty(t, chunk)
		if i < len(chunks)-1 {
			assert.Greater(t, len(chunk), DefaultChunkOverlap, "non-final chunk %d shorter than overlap", i)
		}
	}
}

func TestChunkTextCoverage(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta. ", 300)
	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	joined := strings.Join(chunks, " ")

	// Every word of the source survives chunking.
	normalize := func(s string) []string { return strings.Fields(s) }
	assert.Subset(t, normalize(joined), normalize(text))
}

func TestChunkTextSentencePreference(t *testing.T) {
	chunks := ChunkText("A. B. C. D.", 8, 2)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		// No chunk ends with a bare letter whose terminator fell into the
		// next chunk.
		last := chunk[len(chunk)-1]
		assert.Contains(t, ".!?", string(last), "chunk %q splits a terminator from its sentence", chunk)
	}
}

func TestChunkTextMultiByteRunesSurviveHardCuts(t *testing.T) {
	// CJK text with no sentence terminators, blank lines, or newlines, so
	// every window falls through to the hard cut. Cuts and overlap steps must
	// land on rune boundaries, never inside a multi-byte encoding.
	text := strings.Repeat("こんにちは世界", 400)
	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8: %q", i, chunk)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), DefaultChunkSize, "chunk %d exceeds chunk size", i)
	}
}

func TestChunkTextSizeIsMeasuredInRunes(t *testing.T) {
	// 100 three-byte runes fit a 100-rune window exactly: one chunk, intact.
	text := strings.Repeat("界", 100)
	chunks := ChunkText(text, 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkTextOverlapClampedWhenLargerThanSize(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 100)
	// overlap >= size must not loop forever; it gets reduced to size/10.
	chunks := ChunkText(text, 100, 500)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}

func TestChunkTextOrderPreserved(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strings.Repeat("x", i%7))
		sb.WriteString(". ")
	}
	chunks := ChunkText(sb.String(), 200, 40)
	require.Greater(t, len(chunks), 1)

	// Each chunk's first occurrence in the source is non-decreasing.
	prev := -1
	offset := 0
	for _, chunk := range chunks {
		idx := strings.Index(sb.String()[offset:], chunk[:min(len(chunk), 40)])
		require.GreaterOrEqual(t, idx, 0)
		pos := offset + idx
		assert.GreaterOrEqual(t, pos, prev)
		prev = pos
		offset = pos
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
