package docstore

import (
	"sync"
	"unicode/utf8"
)

// MemoryStore keeps documents and the chunk index behind a single lock so
// every operation observes both in a consistent state.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]string
	order  []string
	chunks []Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]string),
	}
}

// Put replaces the content of id and appends the chunk batch produced from
// it. Chunks of earlier versions of id stay in the index.
func (s *MemoryStore) Put(id, content string, chunks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.docs[id] = content
	s.appendBatch(id, chunks)
}

func (s *MemoryStore) appendBatch(docID string, chunks []string) {
	for i, c := range chunks {
		s.chunks = append(s.chunks, Chunk{
			DocID: docID,
			Index: i,
			Text:  c,
		})
	}
}

func (s *MemoryStore) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.docs[id]
	return content, ok
}

// Docs returns a snapshot of all documents in insertion order.
func (s *MemoryStore) Docs() []Doc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Doc, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, Doc{ID: id, Content: s.docs[id]})
	}

	return res
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Chunks returns a copy of the chunk index in append order.
func (s *MemoryStore) Chunks() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Chunk, len(s.chunks))
	copy(res, s.chunks)
	return res
}

func (s *MemoryStore) ChunksFor(docID string) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []Chunk
	for _, c := range s.chunks {
		if c.DocID == docID {
			res = append(res, c)
		}
	}

	return res
}

func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)

	chars := 0
	for _, content := range s.docs {
		chars += utf8.RuneCountInString(content)
	}

	return Stats{
		TotalDocuments:    len(s.order),
		TotalChunks:       len(s.chunks),
		DocumentIDs:       ids,
		TotalCharsIndexed: chars,
	}
}
