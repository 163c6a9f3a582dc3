// Package llm provides an optional narrative analyst on top of the
// rule-based decision pipeline.
//
// The analyst never decides anything: the structured decision is computed
// deterministically by the decision package, and the analyst only drafts a
// prose explanation of it for human readers. The pipeline runs fully without
// an analyst configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

// Sentinel errors for analyst operations.
var (
	// ErrInvalidConfig indicates invalid analyst configuration.
	ErrInvalidConfig = errors.New("invalid llm configuration")

	// ErrGenerationFailed indicates the backing model call failed.
	ErrGenerationFailed = errors.New("analysis generation failed")
)

// Config holds analyst configuration. An empty BaseURL leaves the analyst
// disabled.
type Config struct {
	// BaseURL is an OpenAI-compatible endpoint. Empty disables the analyst.
	BaseURL string `koanf:"base_url"`

	// Model is the model identifier requested from the endpoint.
	Model string `koanf:"model"`

	// APIKey authenticates against the endpoint. Local OpenAI-compatible
	// servers typically accept any value.
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single generation call.
	Timeout time.Duration `koanf:"timeout"`

	// MaxClauses caps how many retrieved clauses are quoted in the prompt.
	MaxClauses int `koanf:"max_clauses"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "llama3.2"
	}
	if c.APIKey == "" {
		c.APIKey = "unused"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxClauses == 0 {
		c.MaxClauses = 3
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrInvalidConfig)
	}
	if c.MaxClauses < 0 {
		return fmt.Errorf("%w: max_clauses must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Analyst drafts prose explanations of structured decisions.
type Analyst struct {
	model  llms.Model
	config Config
	logger *zap.Logger
}

// NewAnalyst creates an Analyst backed by an OpenAI-compatible endpoint.
// Returns (nil, nil) when no BaseURL is configured; callers treat a nil
// Analyst as disabled.
func NewAnalyst(config Config, logger *zap.Logger) (*Analyst, error) {
	if config.BaseURL == "" {
		return nil, nil
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	return &Analyst{model: model, config: config, logger: logger}, nil
}

// NewAnalystWithModel creates an Analyst over an existing model. Used by
// tests to substitute a fake.
func NewAnalystWithModel(model llms.Model, config Config, logger *zap.Logger) *Analyst {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{model: model, config: config, logger: logger}
}

// Explain generates a short narrative for an already-made decision. The
// prompt pins the model to the structured outcome so the narrative cannot
// contradict it.
func (a *Analyst) Explain(ctx context.Context, query *queryparser.ParsedQuery, res *retrieval.Result, dec *decision.Decision) (string, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, a.model, a.buildPrompt(query, res, dec))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	a.logger.Debug("analysis generated",
		zap.String("model", a.config.Model),
		zap.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(out), nil
}

func (a *Analyst) buildPrompt(query *queryparser.ParsedQuery, res *retrieval.Result, dec *decision.Decision) string {
	var b strings.Builder
	b.WriteString("You are a document analyst. A rule-based system has already decided the outcome below; ")
	b.WriteString("write a short plain-language explanation (2-3 sentences) for the requester. ")
	b.WriteString("Do not change or second-guess the outcome.\n\n")

	fmt.Fprintf(&b, "Request: %s\n", query.Raw)
	fmt.Fprintf(&b, "Outcome: %s (confidence %s, risk %s)\n", dec.Status, dec.Confidence, dec.Risk)
	if len(dec.Factors) > 0 {
		b.WriteString("Factors:\n")
		for _, f := range dec.Factors {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if res != nil && len(res.Hits) > 0 {
		b.WriteString("Relevant clauses:\n")
		for i, hit := range res.Hits {
			if i >= a.config.MaxClauses {
				break
			}
			fmt.Fprintf(&b, "[%d] %s\n", hit.Rank, hit.Chunk.Text)
		}
	}
	return b.String()
}
