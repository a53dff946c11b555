// Package knowledge indexes background text (resume audits, interview
// scenarios, free-form documents) in memory and answers free-text queries
// with the most relevant documents.
//
// Every operation degrades gracefully: the returned value is always usable
// even when an error is reported, so callers that only want best-effort
// context can ignore the error.
package knowledge

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gamma-omg/rag-context/docstore"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	sourceDocument = "document"
	sourceResume   = "resume"
	sourceScenario = "scenario"
)

type Chunkifier interface {
	Chunkify(text string) []string
}

// ChunkSink receives a copy of every chunk batch appended to the index.
// Enqueue is called outside the store lock and must not block.
type ChunkSink interface {
	Enqueue(docID string, chunks []string)
}

type Engine struct {
	log        *slog.Logger
	store      *docstore.MemoryStore
	chunkifier Chunkifier
	sink       ChunkSink
	baseDir    string
	metrics    *metrics
}

type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMaxChunkChars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkifier = &SentenceChunkifier{maxChars: n}
		}
	}
}

func WithChunkifier(c Chunkifier) Option {
	return func(e *Engine) {
		e.chunkifier = c
	}
}

func WithChunkSink(s ChunkSink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithScenarioBaseDir sets the directory IndexScenariosFromFile falls back
// to when the requested path does not exist.
func WithScenarioBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		store:      docstore.NewMemoryStore(),
		chunkifier: &SentenceChunkifier{maxChars: DefaultMaxChunkChars},
		metrics:    newMetrics(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) RegisterMetrics(reg prometheus.Registerer) error {
	err := e.metrics.register(reg)
	if err != nil {
		return fmt.Errorf("failed to register engine metrics: %w", err)
	}

	return nil
}

// IndexDocument stores content under id, replacing any previous content,
// and appends its chunks to the chunk index. Empty or whitespace-only
// content is rejected with ErrValidation and leaves the engine unchanged.
func (e *Engine) IndexDocument(id, content string) error {
	return e.index(sourceDocument, id, content)
}

func (e *Engine) index(source, id, content string) (err error) {
	defer e.observeIndex(source, id, &err)
	defer recoverInternal(&err)

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: document %q has no content", ErrValidation, id)
	}

	chunks := e.chunkifier.Chunkify(content)
	e.store.Put(id, content, chunks)

	e.metrics.chunks.Add(float64(len(chunks)))
	e.log.Info("indexed document",
		"doc_id", id,
		"chars", utf8.RuneCountInString(content),
		"chunks", len(chunks))

	if e.sink != nil {
		e.sink.Enqueue(id, chunks)
	}

	return nil
}

func (e *Engine) observeIndex(source, id string, err *error) {
	switch {
	case *err == nil:
		e.metrics.indexed.WithLabelValues(source).Inc()
		return
	case errors.Is(*err, ErrValidation):
		e.log.Warn("skipping empty document", "doc_id", id, "source", source)
	default:
		e.log.Error("failed to index document", "doc_id", id, "source", source, "error", *err)
	}

	e.metrics.rejected.WithLabelValues(source).Inc()
}

// Document returns the current content stored under id.
func (e *Engine) Document(id string) (string, bool) {
	return e.store.Get(id)
}

// Chunks returns every chunk ever appended, including chunks of documents
// that have since been re-indexed.
func (e *Engine) Chunks() []docstore.Chunk {
	return e.store.Chunks()
}

func (e *Engine) ChunksFor(docID string) []docstore.Chunk {
	return e.store.ChunksFor(docID)
}

func (e *Engine) Stats() docstore.Stats {
	st := e.store.Stats()
	st.Initialized = true
	return st
}
