package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

// fakeModel is an llms.Model that records the prompt and returns a canned
// completion.
type fakeModel struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompt += text.Text
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.prompt = prompt
	return f.reply, nil
}

func testInputs() (*queryparser.ParsedQuery, *retrieval.Result, *decision.Decision) {
	query := queryparser.Parse("46-year-old male, knee surgery claim")
	res := &retrieval.Result{
		Method:      retrieval.MethodLexical,
		TotalChunks: 3,
		Hits: []retrieval.Hit{
			{Chunk: document.Chunk{Index: 0, Text: "Knee surgery is covered."}, Score: 0.9, Rank: 1},
		},
	}
	dec := &decision.Decision{
		Status:     decision.StatusApproved,
		Confidence: decision.ConfidenceHigh,
		Risk:       decision.RiskLow,
		Factors:    []string{"document contains coverage language (\"covered\")"},
	}
	return query, res, dec
}

func TestNewAnalystDisabledWithoutBaseURL(t *testing.T) {
	analyst, err := NewAnalyst(Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, analyst)
}

func TestExplainPinsPromptToDecision(t *testing.T) {
	model := &fakeModel{reply: "  The claim is approved because the policy covers knee surgery.  "}
	analyst := NewAnalystWithModel(model, Config{}, nil)

	query, res, dec := testInputs()
	out, err := analyst.Explain(context.Background(), query, res, dec)
	require.NoError(t, err)
	assert.Equal(t, "The claim is approved because the policy covers knee surgery.", out)

	// The prompt must carry the request, the fixed outcome, the fired
	// factors, and the cited clause.
	assert.Contains(t, model.prompt, query.Raw)
	assert.Contains(t, model.prompt, "approved")
	assert.Contains(t, model.prompt, "coverage language")
	assert.Contains(t, model.prompt, "Knee surgery is covered.")
}

func TestExplainCapsQuotedClauses(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	analyst := NewAnalystWithModel(model, Config{MaxClauses: 1}, nil)

	query, res, dec := testInputs()
	res.Hits = append(res.Hits, retrieval.Hit{
		Chunk: document.Chunk{Index: 1, Text: "Premiums are payable quarterly."}, Score: 0.5, Rank: 2,
	})

	_, err := analyst.Explain(context.Background(), query, res, dec)
	require.NoError(t, err)
	assert.Contains(t, model.prompt, "Knee surgery is covered.")
	assert.NotContains(t, model.prompt, "Premiums are payable quarterly.")
}

func TestExplainWrapsModelErrors(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	analyst := NewAnalystWithModel(model, Config{}, nil)

	query, res, dec := testInputs()
	_, err := analyst.Explain(context.Background(), query, res, dec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
