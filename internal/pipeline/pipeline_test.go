package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

const policyText = `Knee surgery and other orthopedic procedures are covered for insured
members aged 18 to 65. A waiting period of 12 months applies to orthopedic
procedures from the policy start date.

Cosmetic procedures are excluded from coverage under all plans.

Claims from network hospitals are settled directly with the facility.`

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	chunker, err := document.NewChunker(document.Config{WindowSize: 200, Overlap: 40})
	require.NoError(t, err)

	engine, err := retrieval.NewEngine(retrieval.Config{}, nil, nil)
	require.NoError(t, err)

	synthesizer, err := decision.NewSynthesizer(decision.Config{}, nil)
	require.NoError(t, err)

	return New(chunker, engine, synthesizer, nil, nil)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	p := newTestPipeline(t)

	resp, err := p.Analyze(context.Background(), policyText,
		"46-year-old male, knee surgery in Mumbai, 14-month policy claim")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "insurance", resp.Query.Domain)
	assert.Equal(t, decision.StatusApproved, resp.Decision.Status)
	assert.NotEmpty(t, resp.Retrieval.Clauses)
	// No embedder is configured, so retrieval ran on a lexical tier.
	assert.Contains(t, []string{retrieval.MethodLexical, retrieval.MethodKeyword}, resp.Retrieval.Method)
	assert.Empty(t, resp.Analysis)
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Analyze(context.Background(), policyText, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAnalyzeEmptyDocumentPending(t *testing.T) {
	p := newTestPipeline(t)

	resp, err := p.Analyze(context.Background(), "", "is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, decision.StatusPending, resp.Decision.Status)
	assert.Equal(t, decision.RiskHigh, resp.Decision.Risk)
	assert.Zero(t, resp.Retrieval.TotalChunks)
	assert.Empty(t, resp.Retrieval.Clauses)
}

func TestAnalyzeIrrelevantDocument(t *testing.T) {
	p := newTestPipeline(t)

	resp, err := p.Analyze(context.Background(),
		"Quarterly payroll schedules are published by finance on the first business day.",
		"46-year-old male, knee surgery claim")
	require.NoError(t, err)
	assert.Equal(t, decision.StatusPending, resp.Decision.Status)
}

// releaseRecorder is a retrieval tier that records which document IDs were
// ranked and which were released.
type releaseRecorder struct {
	ranked   []string
	released []string
}

func (r *releaseRecorder) Name() string { return "recorder" }

func (r *releaseRecorder) Rank(_ context.Context, _ *queryparser.ParsedQuery, doc *document.Document, _ int) ([]retrieval.Hit, error) {
	r.ranked = append(r.ranked, doc.ID)
	return nil, nil
}

func (r *releaseRecorder) Release(docID string) {
	r.released = append(r.released, docID)
}

func TestAnalyzeReleasesDocumentIndexes(t *testing.T) {
	chunker, err := document.NewChunker(document.Config{})
	require.NoError(t, err)

	recorder := &releaseRecorder{}
	engine, err := retrieval.NewEngineWithTiers(retrieval.Config{}, nil, recorder)
	require.NoError(t, err)

	synthesizer, err := decision.NewSynthesizer(decision.Config{}, nil)
	require.NoError(t, err)

	p := New(chunker, engine, synthesizer, nil, nil)

	// Each request mints a fresh document; any index state a tier built
	// for it must be released before Analyze returns.
	for i := 0; i < 3; i++ {
		_, err := p.Analyze(context.Background(), policyText, "is knee surgery covered?")
		require.NoError(t, err)
	}
	assert.Equal(t, recorder.ranked, recorder.released)
	assert.Len(t, recorder.released, 3)
}

func TestProcessDocument(t *testing.T) {
	p := newTestPipeline(t)

	doc := p.ProcessDocument(policyText)
	require.NotNil(t, doc)
	assert.NotEmpty(t, doc.ID)
	assert.NotEmpty(t, doc.Chunks)
}
