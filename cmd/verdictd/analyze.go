package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	analyzeQuery  string
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document]",
	Short: "Analyze a query against a document",
	Long: `Analyze a natural language query against a document and print the
decision. The document is read from the named file, or from stdin when the
argument is "-".

Examples:
  # Analyze a claim against a policy document
  verdictd analyze policy.txt -q "46-year-old male, knee surgery in Mumbai, 3-month policy"

  # Read the document from stdin
  cat policy.txt | verdictd analyze - -q "is physiotherapy covered?"

  # Plain-text summary instead of JSON
  verdictd analyze policy.txt -q "maternity coverage" -o text`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "natural language query (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "json", "output format: json or text")
	_ = analyzeCmd.MarkFlagRequired("query")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	docText, err := readDocument(args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	resp, err := p.Analyze(cmd.Context(), docText, analyzeQuery)
	if err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	switch analyzeOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "text":
		printText(resp)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", analyzeOutput)
	}
}

func readDocument(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}
