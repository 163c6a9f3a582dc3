// Package main implements the verdictd CLI: document-decision analysis from
// the command line and the HTTP serving mode.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/config"
	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/embeddings"
	"github.com/fathomworks/verdictd/internal/llm"
	"github.com/fathomworks/verdictd/internal/logging"
	"github.com/fathomworks/verdictd/internal/pipeline"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

var (
	// configPath is the optional YAML config file, settable on every command.
	configPath string
	// version is set at build time via -ldflags.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "verdictd",
	Short: "Decision analysis over unstructured documents",
	Long: `verdictd answers natural language questions against policy and contract
documents. It chunks the document, parses the query into structured fields,
retrieves the most relevant clauses through a tiered ranking engine, and
synthesizes an explainable approve/reject/pending decision.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildPipeline wires the analysis stages from configuration. The embedding
// tier and the LLM analyst are both optional; the pipeline degrades to
// lexical retrieval and rule-only decisions without them.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	chunker, err := document.NewChunker(cfg.Document)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	var embedder retrieval.Embedder
	if cfg.Embeddings.BaseURL != "" {
		svc, err := embeddings.NewService(cfg.Embeddings, logger.Named("embeddings"))
		if err != nil {
			return nil, fmt.Errorf("creating embedding service: %w", err)
		}
		embedder = svc
	}

	engine, err := retrieval.NewEngine(cfg.Retrieval, embedder, logger.Named("retrieval"))
	if err != nil {
		return nil, fmt.Errorf("creating retrieval engine: %w", err)
	}

	synthesizer, err := decision.NewSynthesizer(cfg.Decision, logger.Named("decision"))
	if err != nil {
		return nil, fmt.Errorf("creating synthesizer: %w", err)
	}

	analyst, err := llm.NewAnalyst(cfg.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("creating analyst: %w", err)
	}

	return pipeline.New(chunker, engine, synthesizer, analyst, logger.Named("pipeline")), nil
}

// initLogger builds the process logger from configuration.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}
