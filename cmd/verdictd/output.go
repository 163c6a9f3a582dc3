package main

import (
	"fmt"
	"strings"

	"github.com/fathomworks/verdictd/internal/assembler"
)

// printText renders a response as a human-readable summary.
func printText(resp *assembler.Response) {
	fmt.Printf("Decision:   %s\n", strings.ToUpper(string(resp.Decision.Status)))
	fmt.Printf("Confidence: %s    Risk: %s    Score: %.1f\n",
		resp.Decision.Confidence, resp.Decision.Risk, resp.Decision.Score)
	fmt.Printf("Query:      %s\n", resp.Query.Summary)
	fmt.Printf("Retrieval:  %s (%d of %d chunks)\n",
		resp.Retrieval.Method, len(resp.Retrieval.Clauses), resp.Retrieval.TotalChunks)

	fmt.Printf("\n%s\n", resp.Decision.Justification)

	if len(resp.Decision.ClauseReferences) > 0 {
		fmt.Println("\nCited clauses:")
		for i, ref := range resp.Decision.ClauseReferences {
			fmt.Printf("  [%d] %s\n", i+1, ref)
		}
	}
	if len(resp.Decision.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range resp.Decision.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	if len(resp.Decision.NextSteps) > 0 {
		fmt.Println("\nNext steps:")
		for _, step := range resp.Decision.NextSteps {
			fmt.Printf("  - %s\n", step)
		}
	}
	if resp.Analysis != "" {
		fmt.Printf("\nAnalyst note:\n%s\n", resp.Analysis)
	}
}
