// Package embeddingtest provides deterministic embedders for tests.
package embeddingtest

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "is": true, "of": true,
	"the": true, "to": true, "what": true, "how": true, "does": true, "in": true,
}

// VocabEmbedder maps every distinct content word to its own dimension, so
// texts sharing words are similar and texts sharing none are orthogonal apart
// from a small bias component that keeps vectors non-zero.
type VocabEmbedder struct {
	Dimension int

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

func NewVocabEmbedder(dimension int) *VocabEmbedder {
	return &VocabEmbedder{Dimension: dimension, vocab: map[string]int{}}
}

func (v *VocabEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.vector(text), nil
}

func (v *VocabEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = v.vector(t)
	}
	return out, nil
}

// Calls counts provider round trips.
func (v *VocabEmbedder) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func (v *VocabEmbedder) vector(text string) []float32 {
	vec := make([]float32, v.Dimension)
	vec[v.Dimension-1] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		idx, ok := v.vocab[w]
		if !ok {
			idx = len(v.vocab) % (v.Dimension - 1)
			v.vocab[w] = idx
		}
		vec[idx]++
	}
	return vec
}

// FixedEmbedder always returns vectors of Length, whatever the text. Err, when
// set, is returned from the first FailTimes calls.
type FixedEmbedder struct {
	Length    int
	Err       error
	FailTimes int

	mu    sync.Mutex
	calls int
}

func (f *FixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *FixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil && f.calls <= f.FailTimes {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.Length)
		for j := range vec {
			vec[j] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func (f *FixedEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
