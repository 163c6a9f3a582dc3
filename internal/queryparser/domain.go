package queryparser

import (
	"strings"
)

// Domain is a closed classification tag that selects which decision rule
// table applies.
type Domain string

// Supported domains. DomainGeneral is the fallback when no domain keywords
// match.
const (
	DomainInsurance  Domain = "insurance"
	DomainLegal      Domain = "legal"
	DomainHR         Domain = "hr"
	DomainCompliance Domain = "compliance"
	DomainGeneral    Domain = "general"
)

// domainKeywords associates each domain with its keyword set. Declaration
// order doubles as the tie-break: on an equal hit count the earlier domain
// wins.
var domainKeywords = []struct {
	domain   Domain
	keywords []string
}{
	{DomainInsurance, []string{
		"insurance", "policy", "claim", "coverage", "premium", "insured",
		"surgery", "treatment", "hospital", "medical", "deductible",
	}},
	{DomainLegal, []string{
		"legal", "law", "regulation", "contract", "liability", "court",
		"clause", "statute", "breach", "agreement",
	}},
	{DomainHR, []string{
		"employee", "staff", "hr", "human resources", "leave", "benefits",
		"payroll", "salary", "recruitment", "tenure",
	}},
	{DomainCompliance, []string{
		"compliance", "audit", "requirement", "standard", "violation",
		"regulatory", "certification", "gdpr",
	}},
}

// ClassifyDomain scans the query for each domain's keyword set and returns
// the domain with the most hits. Ties go to the earlier declaration; zero
// hits yields DomainGeneral.
func ClassifyDomain(query string) Domain {
	lower := strings.ToLower(query)

	best := DomainGeneral
	bestHits := 0
	for _, entry := range domainKeywords {
		hits := 0
		for _, keyword := range entry.keywords {
			hits += countWord(lower, keyword)
		}
		if hits > bestHits {
			best = entry.domain
			bestHits = hits
		}
	}
	return best
}

// countWord counts whole-word occurrences of keyword in lowercased text.
// Multi-word keywords ("human resources") are matched as a phrase.
func countWord(text, keyword string) int {
	count := 0
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return count
		}
		abs := start + idx
		end := abs + len(keyword)
		if boundaryBefore(text, abs) && boundaryAfter(text, end) {
			count++
		}
		start = end
	}
}

func boundaryBefore(text string, i int) bool {
	return i == 0 || !isWordByte(text[i-1])
}

func boundaryAfter(text string, i int) bool {
	return i >= len(text) || !isWordByte(text[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
