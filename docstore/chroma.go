package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

const (
	DocID      = "doc_id"
	ChunkIndex = "chunk_index"
)

// Collection is the part of a Chroma collection the mirror writes to.
type Collection interface {
	Add(ctx context.Context, opts ...chroma.CollectionUpdateOption) error
}

type ChromaConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
}

func OpenChromaCollection(ctx context.Context, cfg ChromaConfig) (chroma.Collection, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}

	return col, nil
}

type batch struct {
	docID  string
	chunks []string
}

// ChromaMirror copies chunk batches into a Chroma collection on its own
// goroutine. Indexing never waits for it: when the queue is full the batch
// is dropped.
type ChromaMirror struct {
	log         *slog.Logger
	col         Collection
	requestSize int
	queue       chan batch
}

func NewChromaMirror(col Collection, queueSize, requestSize int, log *slog.Logger) *ChromaMirror {
	return &ChromaMirror{
		log:         log,
		col:         col,
		requestSize: requestSize,
		queue:       make(chan batch, max(queueSize, 1)),
	}
}

func (m *ChromaMirror) Enqueue(docID string, chunks []string) {
	b := batch{
		docID:  docID,
		chunks: append([]string(nil), chunks...),
	}

	select {
	case m.queue <- b:
	default:
		m.log.Warn("chroma mirror queue is full, dropping batch", "doc_id", docID, "chunks", len(chunks))
	}
}

// Run writes queued batches until ctx is cancelled.
func (m *ChromaMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-m.queue:
			err := m.write(ctx, b)
			if err != nil {
				m.log.Error("failed to mirror chunks", "doc_id", b.docID, "error", err)
			}
		}
	}
}

func (m *ChromaMirror) write(ctx context.Context, b batch) error {
	start := 0
	for _, end := range m.buckets(b.chunks) {
		metas := make([]chroma.DocumentMetadata, 0, end-start)
		for i := start; i < end; i++ {
			metas = append(metas, chroma.NewDocumentMetadata(
				chroma.NewStringAttribute(DocID, b.docID),
				chroma.NewIntAttribute(ChunkIndex, int64(i)),
			))
		}

		err := m.col.Add(ctx,
			chroma.WithTexts(b.chunks[start:end]...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunks %d..%d: %w", start, end, err)
		}

		start = end
	}

	return nil
}

// buckets returns the exclusive end offsets of consecutive groups of chunks
// whose total size stays within requestSize. A chunk larger than
// requestSize gets a group of its own.
func (m *ChromaMirror) buckets(chunks []string) []int {
	if m.requestSize <= 0 {
		if len(chunks) == 0 {
			return nil
		}
		return []int{len(chunks)}
	}

	var ends []int
	size := 0
	for i, c := range chunks {
		l := utf8.RuneCountInString(c)
		if size > 0 && size+l > m.requestSize {
			ends = append(ends, i)
			size = 0
		}
		size += l
	}

	if len(chunks) > 0 {
		ends = append(ends, len(chunks))
	}

	return ends
}
