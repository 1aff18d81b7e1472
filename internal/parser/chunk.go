package parser

import (
	"strings"
)

// Unit is the measure used for chunk size and overlap.
type Unit string

const (
	UnitWord Unit = "word"
	UnitRune Unit = "rune"
)

const (
	DefaultChunkSize    = 180 // words
	DefaultChunkOverlap = 40  // words
)

// Chunk splits text into overlapping windows of at most size units. Windows
// start every max(size-overlap, 1) units and the scan stops after the window
// that reaches the end of the text, so it terminates for any overlap. Word
// chunks are re-joined with single spaces; rune chunks are cut from the text
// after collapsing whitespace runs.
func Chunk(text string, size, overlap int, unit Unit) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	switch unit {
	case UnitRune:
		runes := []rune(strings.Join(words, " "))
		for _, w := range windows(len(runes), size, overlap) {
			chunks = append(chunks, string(runes[w[0]:w[1]]))
		}
	default:
		for _, w := range windows(len(words), size, overlap) {
			chunks = append(chunks, strings.Join(words[w[0]:w[1]], " "))
		}
	}
	return chunks
}

// windows returns the [start, end) bounds of every chunk over n units.
func windows(n, size, overlap int) [][2]int {
	if n == 0 || size <= 0 {
		return nil
	}
	step := max(size-overlap, 1)

	var out [][2]int
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
	}
	return out
}
