package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

// LexicalRanker is the middle tier: a TF-IDF vector space fitted per
// document (not globally), with the query expanded through the fixed
// domain-synonym table before vectorization. Ranking is by cosine
// similarity in that space.
//
// Fitted vocabularies are cached per document ID until Release is called
// for that document; a single-entry lock guards fitting so concurrent
// requests for the same unfitted document do not race to build the model
// twice.
type LexicalRanker struct {
	mu     sync.Mutex
	models map[string]*tfidfModel
}

// NewLexicalRanker creates the TF-IDF tier.
func NewLexicalRanker() *LexicalRanker {
	return &LexicalRanker{models: make(map[string]*tfidfModel)}
}

// Name returns the tier identifier.
func (r *LexicalRanker) Name() string { return MethodLexical }

// Rank fits (or reuses) the document's TF-IDF model, vectorizes the
// expanded query, and scores chunks by cosine similarity. Fit failures are
// reported as ErrTierUnavailable so the engine can fall back.
func (r *LexicalRanker) Rank(_ context.Context, query *queryparser.ParsedQuery, doc *document.Document, k int) ([]Hit, error) {
	model, err := r.model(doc)
	if err != nil {
		return nil, err
	}

	queryVec := model.vectorize(expandQuery(tokenize(query.Raw)))
	if queryVec == nil {
		// No query term intersects the document vocabulary; nothing to
		// rank in this space. The keyword tier is the authority on "no
		// overlap", so signal unavailability rather than an empty win.
		return nil, fmt.Errorf("%w: query shares no vocabulary with document", ErrTierUnavailable)
	}

	hits := make([]Hit, 0, len(doc.Chunks))
	for i, chunkVec := range model.chunkVectors {
		score := dot(queryVec, chunkVec)
		if score > 0 {
			hits = append(hits, Hit{Chunk: doc.Chunks[i], Score: score})
		}
	}

	sortHits(hits)
	return truncate(hits, k), nil
}

// Release discards the cached TF-IDF model for the document, if any.
func (r *LexicalRanker) Release(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, docID)
}

// model returns the cached TF-IDF model for the document, fitting it on
// first use.
func (r *LexicalRanker) model(doc *document.Document) (*tfidfModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if model, ok := r.models[doc.ID]; ok {
		return model, nil
	}
	model, err := fitTFIDF(doc)
	if err != nil {
		return nil, err
	}
	r.models[doc.ID] = model
	return model, nil
}

// tfidfModel is a TF-IDF vector space over one document's chunks. Vectors
// are sparse maps from vocabulary index to weight, L2-normalized so cosine
// similarity reduces to a dot product.
type tfidfModel struct {
	vocabulary   map[string]int
	idf          []float64
	chunkVectors []map[int]float64
}

// fitTFIDF builds the vocabulary, smoothed IDF values, and normalized chunk
// vectors for a document.
func fitTFIDF(doc *document.Document) (*tfidfModel, error) {
	if len(doc.Chunks) == 0 {
		return nil, fmt.Errorf("%w: document has no chunks", ErrTierUnavailable)
	}

	chunkTokens := make([][]string, len(doc.Chunks))
	df := make(map[string]int)
	for i, chunk := range doc.Chunks {
		tokens := contentTokens(chunk.Text)
		chunkTokens[i] = tokens
		seen := make(map[string]bool)
		for _, token := range tokens {
			if !seen[token] {
				seen[token] = true
				df[token]++
			}
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("%w: no indexable tokens in document", ErrTierUnavailable)
	}

	// Stable vocabulary ordering keeps vectors deterministic.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	model := &tfidfModel{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(doc.Chunks))
	for i, term := range terms {
		model.vocabulary[term] = i
		model.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	model.chunkVectors = make([]map[int]float64, len(chunkTokens))
	for i, tokens := range chunkTokens {
		model.chunkVectors[i] = model.vectorize(tokens)
	}
	return model, nil
}

// vectorize maps tokens into the model's space as an L2-normalized sparse
// TF-IDF vector. Tokens outside the vocabulary are ignored; nil is returned
// when nothing maps.
func (m *tfidfModel) vectorize(tokens []string) map[int]float64 {
	tf := make(map[int]float64)
	total := 0
	for _, token := range tokens {
		if isStopword(token) {
			continue
		}
		if idx, ok := m.vocabulary[token]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	var norm float64
	for idx := range tf {
		w := tf[idx] / float64(total) * m.idf[idx]
		tf[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range tf {
		tf[idx] /= norm
	}
	return tf
}

// contentTokens tokenizes text and drops stopwords.
func contentTokens(text string) []string {
	tokens := tokenize(text)
	filtered := tokens[:0]
	for _, token := range tokens {
		if !isStopword(token) {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// dot computes the sparse dot product of two normalized vectors, iterating
// the smaller one.
func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}
