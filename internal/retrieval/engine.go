package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

var engineTracer = otel.Tracer("verdictd.retrieval")

// DefaultTopK is the default number of chunks to retrieve.
const DefaultTopK = 4

// DefaultMinScore is the default inclusion threshold. Chunks scoring below
// it are dropped rather than padded into the result.
const DefaultMinScore = 0.05

// Config holds retrieval engine configuration.
type Config struct {
	// TopK is the maximum number of chunks to return.
	TopK int `koanf:"top_k"`

	// MinScore is the minimum relevance score for inclusion.
	MinScore float64 `koanf:"min_score"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.MinScore == 0 {
		c.MinScore = DefaultMinScore
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("%w: top_k must be non-negative, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.MinScore < 0 || c.MinScore >= 1 {
		return fmt.Errorf("%w: min_score must be in [0, 1), got %v", ErrInvalidConfig, c.MinScore)
	}
	return nil
}

// Engine ranks a document's chunks against a query by walking its tier list
// in priority order. It never fails the caller outright: the final tier is
// always available, and an empty ranking is a valid result.
type Engine struct {
	config Config
	tiers  []Ranker
	logger *zap.Logger
}

// NewEngine creates an engine with the standard tier order: embedding,
// TF-IDF, keyword overlap. The embedder may be nil; the embedding tier then
// reports itself unavailable and the engine runs on the lexical tiers.
func NewEngine(config Config, embedder Embedder, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Engine{
		config: config,
		tiers: []Ranker{
			NewEmbeddingRanker(embedder, logger.Named("embedding")),
			NewLexicalRanker(),
			NewKeywordRanker(),
		},
		logger: logger,
	}, nil
}

// NewEngineWithTiers creates an engine over an explicit tier list, mainly
// for tests that force specific tiers to fail.
func NewEngineWithTiers(config Config, logger *zap.Logger, tiers ...Ranker) (*Engine, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: at least one tier required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Engine{config: config, tiers: tiers, logger: logger}, nil
}

// Retrieve returns the top-k most relevant chunks for the query, tagged
// with the tier that produced them. A zero-chunk document yields an empty
// result attributed to the keyword tier, never an error. If fewer than
// top-k chunks clear the minimum score, only those are returned.
func (e *Engine) Retrieve(ctx context.Context, doc *document.Document, query *queryparser.ParsedQuery, topK int) (*Result, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.Retrieve")
	defer span.End()

	if topK <= 0 {
		topK = e.config.TopK
	}
	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("chunks", len(doc.Chunks)),
	)

	if doc.Empty() {
		span.SetAttributes(attribute.String("method", MethodKeyword))
		return &Result{Method: MethodKeyword}, nil
	}

	var lastErr error
	for _, tier := range e.tiers {
		hits, err := tier.Rank(ctx, query, doc, topK)
		if err != nil {
			if !errors.Is(err, ErrTierUnavailable) {
				// Anything else is a programmer error; don't mask it
				// with a silent downgrade.
				return nil, fmt.Errorf("tier %s: %w", tier.Name(), err)
			}
			e.logger.Warn("retrieval tier unavailable, falling back",
				zap.String("tier", tier.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}

		// The keyword tier's own non-zero-overlap floor is its inclusion
		// rule; the score threshold applies to the similarity tiers.
		minScore := e.config.MinScore
		if tier.Name() == MethodKeyword {
			minScore = 0
		}

		result := &Result{
			Method:      tier.Name(),
			Hits:        e.filter(hits, topK, minScore),
			TotalChunks: len(doc.Chunks),
		}
		span.SetAttributes(
			attribute.String("method", result.Method),
			attribute.Int("hits", len(result.Hits)),
		)
		return result, nil
	}

	// Unreachable with the standard tier list: the keyword tier cannot
	// report unavailability.
	return nil, fmt.Errorf("all retrieval tiers unavailable: %w", lastErr)
}

// Release discards any per-document index state the tiers cached for the
// document. Callers that create a document per request must release it once
// the request completes, or the tier caches grow with every request.
func (e *Engine) Release(docID string) {
	for _, tier := range e.tiers {
		if rel, ok := tier.(releaser); ok {
			rel.Release(docID)
		}
	}
}

// filter applies the minimum-score threshold, re-ranks, and truncates.
func (e *Engine) filter(hits []Hit, topK int, minScore float64) []Hit {
	kept := make([]Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score > 0 && hit.Score >= minScore {
			kept = append(kept, hit)
		}
	}
	sortHits(kept)
	kept = truncate(kept, topK)
	for i := range kept {
		kept[i].Rank = i + 1
	}
	return kept
}
