// Package pipeline composes the analysis stages: chunking, query parsing,
// tiered retrieval, decision synthesis, and response assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/assembler"
	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/llm"
	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

var pipelineTracer = otel.Tracer("verdictd.pipeline")

// Sentinel errors for pipeline operations.
var (
	// ErrEmptyQuery indicates an analysis request without a query.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// Pipeline runs end-to-end document analysis. Safe for concurrent use: all
// stages are either stateless or internally synchronized.
type Pipeline struct {
	chunker     *document.Chunker
	engine      *retrieval.Engine
	synthesizer *decision.Synthesizer
	analyst     *llm.Analyst
	logger      *zap.Logger
}

// New assembles a Pipeline from its stages. The analyst may be nil, in which
// case responses carry no narrative analysis.
func New(chunker *document.Chunker, engine *retrieval.Engine, synthesizer *decision.Synthesizer, analyst *llm.Analyst, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:     chunker,
		engine:      engine,
		synthesizer: synthesizer,
		analyst:     analyst,
		logger:      logger,
	}
}

// ProcessDocument normalizes and chunks raw document text.
func (p *Pipeline) ProcessDocument(text string) *document.Document {
	return p.chunker.Process(text)
}

// Analyze runs the full pipeline over raw document text and a natural
// language query. An unreachable analyst degrades to a response without
// narrative; every other stage failure is returned.
func (p *Pipeline) Analyze(ctx context.Context, docText, query string) (*assembler.Response, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.Analyze")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()

	doc := p.chunker.Process(docText)
	// Index state the tiers build for this one-shot document must not
	// outlive the request.
	defer p.engine.Release(doc.ID)
	parsed := queryparser.Parse(query)

	res, err := p.engine.Retrieve(ctx, doc, parsed, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieving evidence: %w", err)
	}

	dec := p.synthesizer.Decide(ctx, parsed, res)

	var analysis string
	if p.analyst != nil {
		analysis, err = p.analyst.Explain(ctx, parsed, res, dec)
		if err != nil {
			p.logger.Warn("analyst unavailable, returning structured decision only",
				zap.Error(err))
			analysis = ""
		}
	}

	resp := assembler.Build(parsed, res, dec, analysis, time.Since(start))

	span.SetAttributes(
		attribute.String("pipeline.domain", string(parsed.Domain)),
		attribute.String("pipeline.method", res.Method),
		attribute.String("pipeline.status", string(dec.Status)),
	)
	p.logger.Info("analysis complete",
		zap.String("request_id", resp.RequestID),
		zap.String("domain", string(parsed.Domain)),
		zap.String("method", res.Method),
		zap.String("status", string(dec.Status)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}
