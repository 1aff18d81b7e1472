package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag/internal/helper"
	"doc-rag/internal/llmservice"
	"doc-rag/internal/llmservice/llmtest"
	"doc-rag/internal/models"
)

func init() {
	helper.RetryInitialInterval = time.Millisecond
}

func newGenerator(model *llmtest.FakeModel) *Generator {
	return NewGenerator(llmservice.NewClient(model, 2), 0, 0.1)
}

func TestGenerateKeepsModelSources(t *testing.T) {
	model := &llmtest.FakeModel{Responses: []string{`{"answer": "RAG combines retrieval and generation.", "sources": ["rag.txt"]}`}}
	ans, err := newGenerator(model).Generate(context.Background(), "What is RAG?", "ctx", []string{"rag.txt", "intro.txt"})
	require.NoError(t, err)
	assert.Equal(t, "RAG combines retrieval and generation.", ans.Answer)
	assert.Equal(t, []string{"rag.txt"}, ans.Sources)
}

func TestGenerateBackfillsEmptySources(t *testing.T) {
	model := &llmtest.FakeModel{Responses: []string{`{"answer": "It combines retrieval and generation.", "sources": []}`}}
	ans, err := newGenerator(model).Generate(context.Background(), "What is RAG?", "ctx", []string{"rag.txt", "intro.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rag.txt", "intro.txt"}, ans.Sources)
}

func TestGenerateStripsThinkAndFences(t *testing.T) {
	raw := "<think>let me look at the context</think>\n```json\n{\"answer\": \"Yes.\", \"sources\": [\"a.txt\", \" \"]}\n```"
	model := &llmtest.FakeModel{Responses: []string{raw}}
	ans, err := newGenerator(model).Generate(context.Background(), "q", "ctx", []string{"b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Yes.", ans.Answer)
	assert.Equal(t, []string{"a.txt"}, ans.Sources)
}

func TestGeneratePlainTextReply(t *testing.T) {
	model := &llmtest.FakeModel{Responses: []string{models.NotFoundAnswer}}
	ans, err := newGenerator(model).Generate(context.Background(), "q", "ctx", []string{"rag.txt"})
	require.NoError(t, err)
	assert.Equal(t, models.NotFoundAnswer, ans.Answer)
	assert.Equal(t, []string{"rag.txt"}, ans.Sources)
}

func TestGeneratePrompt(t *testing.T) {
	model := &llmtest.FakeModel{Responses: []string{`{"answer": "ok", "sources": ["x.txt"]}`}}
	_, err := newGenerator(model).Generate(context.Background(), "What is RAG?", "SOURCE:\nFilename: x.txt", nil)
	require.NoError(t, err)

	prompt := model.LastPrompt()
	assert.Contains(t, prompt, models.NotFoundAnswer)
	assert.Contains(t, prompt, "at most 6 sentences")
	assert.Contains(t, prompt, "Filename: x.txt")
	assert.Contains(t, prompt, "What is RAG?")
}

func TestGenerateFailureAfterRetries(t *testing.T) {
	model := &llmtest.FakeModel{Err: errors.New("upstream unavailable")}
	_, err := newGenerator(model).Generate(context.Background(), "q", "ctx", []string{"a.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 3, model.Calls())
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Answer
	}{
		{"json", `{"answer":"a","sources":["s.txt"]}`, models.NewAnswer("a", []string{"s.txt"})},
		{"prose around json", `Here you go: {"answer":"a","sources":[]} thanks`, models.NewAnswer("a", nil)},
		{"empty answer field", `{"answer":"","sources":["s.txt"]}`, models.NewAnswer(`{"answer":"","sources":["s.txt"]}`, nil)},
		{"not json", "just text", models.NewAnswer("just text", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAnswer(tt.raw))
		})
	}
}
