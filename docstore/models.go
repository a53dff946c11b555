package docstore

// Doc is the current content of an indexed document.
type Doc struct {
	ID      string
	Content string
}

// Chunk is one piece of a document produced at indexing time. Chunks are
// never updated or removed.
type Chunk struct {
	DocID string
	Index int
	Text  string
}

type Stats struct {
	Initialized       bool     `json:"initialized"`
	TotalDocuments    int      `json:"total_documents"`
	TotalChunks       int      `json:"total_chunks"`
	DocumentIDs       []string `json:"document_ids"`
	TotalCharsIndexed int      `json:"total_chars_indexed"`
}
