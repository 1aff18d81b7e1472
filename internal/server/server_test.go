package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag/internal/models"
	"doc-rag/internal/rag"
)

type stubAsker struct {
	answer   models.Answer
	err      error
	question string
	k        int
}

func (s *stubAsker) Ask(_ context.Context, question string, k int) (models.Answer, error) {
	s.question, s.k = question, k
	return s.answer, s.err
}

func (s *stubAsker) Status() string { return "ok" }

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := New(Config{}, &stubAsker{})
	w := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAsk(t *testing.T) {
	asker := &stubAsker{answer: models.NewAnswer("RAG combines retrieval and generation.", []string{"rag.txt"})}
	srv := New(Config{}, asker)

	w := do(t, srv, http.MethodPost, "/ask", `{"question": "What is RAG?", "k": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"RAG combines retrieval and generation.","sources":["rag.txt"]}`, w.Body.String())
	assert.Equal(t, "What is RAG?", asker.question)
	assert.Equal(t, 1, asker.k)
}

func TestAskEmptySourcesSerializeAsArray(t *testing.T) {
	srv := New(Config{}, &stubAsker{answer: models.NewAnswer(models.NoDocumentsAnswer, nil)})
	w := do(t, srv, http.MethodPost, "/ask", `{"question": "anything"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []interface{}{}, body["sources"])
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed json", `{"question":`, nil, http.StatusBadRequest},
		{"negative k", `{"question": "q", "k": -1}`, nil, http.StatusBadRequest},
		{"empty question", `{"question": ""}`, rag.ErrEmptyQuestion, http.StatusBadRequest},
		{"generation failure", `{"question": "q"}`, errors.Join(rag.ErrGeneration, errors.New("timeout")), http.StatusBadGateway},
		{"store failure", `{"question": "q"}`, errors.New("index unavailable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Config{}, &stubAsker{err: tt.err})
			w := do(t, srv, http.MethodPost, "/ask", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{AllowedOrigins: []string{"*"}}, &stubAsker{})

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
