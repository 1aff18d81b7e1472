package models

const (
	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`
	CodeFenceRegex   = "(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$"

	// NotFoundAnswer is the exact phrase the model must use when the context
	// does not answer the question.
	NotFoundAnswer = "I could not find this in the provided documents."
	// NoDocumentsAnswer is returned without calling the model when retrieval is empty.
	NoDocumentsAnswer = "No relevant documents were found to answer this question."

	DefaultEmbeddingDimension = 768
	DefaultTopK               = 3
	MaxAnswerSentences        = 6
	MaxCitedSources           = 3
)

var (
	SystemPromptTemplate = `You are a careful assistant that answers questions about a private document collection.

Rules:
- Use only the information inside CONTEXT. Never use outside knowledge and never invent facts.
- If CONTEXT does not contain the answer, reply with exactly "%s" and nothing else in the answer field.
- Always cite between 1 and %d source files you relied on, using the Filename values from CONTEXT.
- Keep the answer to at most %d sentences.

Respond only with a JSON object of the form {"answer": "<text>", "sources": ["<filename>", ...]}.
`

	QuestionPromptTemplate = `CONTEXT (the only information you may use):
%s

QUESTION:
%s
`
)
