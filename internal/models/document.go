package models

// Document is a source file as read during an ingestion pass.
type Document struct {
	DocID    string
	Filepath string
	Filename string
	Content  string
	MtimeNs  int64
	Size     int64
}

// Chunk is a window of a document's text. It only lives until its row is
// written.
type Chunk struct {
	ParentDocID string
	ChunkIndex  int
	Text        string
}
