package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

// Embedder generates dense vector embeddings from text. The production
// implementation lives in internal/embeddings; tests inject fakes.
//
// Vectors must be L2-normalized: chromem ranks by cosine similarity and
// assumes unit vectors.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingRanker is the highest-quality tier. Chunks and the query are
// embedded through the injected Embedder and ranked by cosine similarity in
// an in-memory chromem collection built once per document.
//
// The per-document index is cached until Release is called for that
// document. A single-entry lock guards construction so concurrent requests
// for the same unindexed document build it exactly once. Any failure to embed or index
// is reported as ErrTierUnavailable; the engine falls back.
type EmbeddingRanker struct {
	embedder Embedder
	logger   *zap.Logger

	mu          sync.Mutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
}

// NewEmbeddingRanker creates the embedding tier. A nil embedder is legal
// and makes the tier permanently unavailable, which is how a deployment
// without an embedding model runs on the lexical tiers alone.
func NewEmbeddingRanker(embedder Embedder, logger *zap.Logger) *EmbeddingRanker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingRanker{
		embedder:    embedder,
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
	}
}

// Name returns the tier identifier.
func (r *EmbeddingRanker) Name() string { return MethodEmbedding }

// Rank embeds the query and searches the document's vector index.
func (r *EmbeddingRanker) Rank(ctx context.Context, query *queryparser.ParsedQuery, doc *document.Document, k int) ([]Hit, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrTierUnavailable)
	}

	collection, err := r.collection(ctx, doc)
	if err != nil {
		return nil, err
	}

	n := k
	if n <= 0 || n > len(doc.Chunks) {
		// chromem requires nResults <= collection size.
		n = len(doc.Chunks)
	}

	results, err := collection.Query(ctx, query.Raw, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrTierUnavailable, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		idx, err := strconv.Atoi(res.ID)
		if err != nil || idx < 0 || idx >= len(doc.Chunks) {
			return nil, fmt.Errorf("%w: unexpected result id %q", ErrTierUnavailable, res.ID)
		}
		hits = append(hits, Hit{Chunk: doc.Chunks[idx], Score: float64(res.Similarity)})
	}

	sortHits(hits)
	return hits, nil
}

// Release drops the document's vector index, both the cache entry and the
// underlying chromem collection.
func (r *EmbeddingRanker) Release(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collections[docID]; !ok {
		return
	}
	delete(r.collections, docID)
	if err := r.db.DeleteCollection("doc_" + docID); err != nil {
		r.logger.Warn("deleting embedding index",
			zap.String("document_id", docID),
			zap.Error(err))
	}
}

// collection returns the cached index for the document, building it under
// the initialization lock on first use.
func (r *EmbeddingRanker) collection(ctx context.Context, doc *document.Document) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if collection, ok := r.collections[doc.ID]; ok {
		return collection, nil
	}

	if r.db == nil {
		r.db = chromem.NewDB()
	}

	collection, err := r.db.GetOrCreateCollection("doc_"+doc.ID, nil, r.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection: %v", ErrTierUnavailable, err)
	}

	texts := make([]string, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		texts[i] = chunk.Text
	}
	vectors, err := r.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding chunks: %v", ErrTierUnavailable, err)
	}
	if len(vectors) != len(doc.Chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrTierUnavailable, len(vectors), len(doc.Chunks))
	}

	docs := make([]chromem.Document, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.Index),
			Content:   chunk.Text,
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("%w: indexing chunks: %v", ErrTierUnavailable, err)
	}

	r.logger.Debug("embedding index built",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(doc.Chunks)))

	r.collections[doc.ID] = collection
	return collection, nil
}

// embeddingFunc adapts the Embedder to chromem's query-time interface.
func (r *EmbeddingRanker) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return r.embedder.EmbedQuery(ctx, text)
	}
}
