package models

// RetrievedChunk is a search hit as seen by the query path.
type RetrievedChunk struct {
	Filename   string  `json:"filename"`
	Filepath   string  `json:"filepath"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Answer is the result of a question. Sources is never nil so it always
// serializes as a JSON array.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func NewAnswer(text string, sources []string) Answer {
	out := make([]string, 0, len(sources))
	out = append(out, sources...)
	return Answer{Answer: text, Sources: out}
}
