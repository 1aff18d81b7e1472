package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkWords(t *testing.T) {
	text := numberedWords(400)

	chunks := Chunk(text, 180, 40, UnitWord)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	last := strings.Fields(chunks[2])
	assert.Len(t, first, 180)
	assert.Equal(t, "w0", first[0])
	assert.Equal(t, "w140", second[0], "windows advance by size-overlap")
	assert.Equal(t, first[140:], second[:40], "consecutive windows share the overlap")
	assert.Equal(t, "w399", last[len(last)-1])
	assert.Len(t, last, 120)
}

func TestChunkBounds(t *testing.T) {
	text := numberedWords(1000)
	for _, tc := range []struct{ size, overlap int }{{180, 40}, {50, 0}, {10, 9}, {7, 3}} {
		for _, c := range Chunk(text, tc.size, tc.overlap, UnitWord) {
			assert.LessOrEqual(t, len(strings.Fields(c)), tc.size)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := numberedWords(523)
	assert.Equal(t, Chunk(text, 180, 40, UnitWord), Chunk(text, 180, 40, UnitWord))
	assert.Equal(t, Chunk(text, 64, 8, UnitRune), Chunk(text, 64, 8, UnitRune))
}

func TestChunkTerminatesWhenOverlapNotSmallerThanSize(t *testing.T) {
	chunks := Chunk("a b c d e", 3, 5, UnitWord)
	assert.Equal(t, []string{"a b c", "b c d", "c d e"}, chunks)
}

func TestChunkShortText(t *testing.T) {
	assert.Equal(t, []string{"RAG combines retrieval and generation"},
		Chunk("RAG combines\n\tretrieval and   generation", 180, 40, UnitWord))
}

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk("", 180, 40, UnitWord))
	assert.Empty(t, Chunk(" \n\t ", 180, 40, UnitWord))
	assert.Empty(t, Chunk("some text", 0, 0, UnitWord))
}

func TestChunkRunes(t *testing.T) {
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, Chunk("abcdefghij", 4, 1, UnitRune))

	chunks := Chunk(strings.Repeat("åäö ", 50), 16, 4, UnitRune)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 16)
	}
}

func TestWindows(t *testing.T) {
	assert.Nil(t, windows(0, 3, 1))
	assert.Equal(t, [][2]int{{0, 3}}, windows(3, 3, 1))
	assert.Equal(t, [][2]int{{0, 3}, {2, 5}, {4, 6}}, windows(6, 3, 1))
}
