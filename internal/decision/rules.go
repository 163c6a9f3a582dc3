package decision

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

// Evidence wraps retrieval hits with a pre-lowered concatenation of their
// text for phrase scanning. Hit order is the retrieval rank order.
type Evidence struct {
	Hits []retrieval.Hit

	lowered []string
	joined  string
}

// NewEvidence builds Evidence from a retrieval result. A nil or empty result
// yields empty Evidence, which the synthesizer handles explicitly.
func NewEvidence(res *retrieval.Result) *Evidence {
	ev := &Evidence{}
	if res == nil {
		return ev
	}
	ev.Hits = res.Hits
	ev.lowered = make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ev.lowered[i] = strings.ToLower(hit.Chunk.Text)
	}
	ev.joined = strings.Join(ev.lowered, "\n")
	return ev
}

// Empty reports whether no evidence text is available.
func (e *Evidence) Empty() bool { return len(e.Hits) == 0 }

// hitContaining returns the index of the first (best ranked) hit whose text
// contains the lowercase term, or -1.
func (e *Evidence) hitContaining(term string) int {
	for i, text := range e.lowered {
		if strings.Contains(text, term) {
			return i
		}
	}
	return -1
}

// firstHitWithAny scans terms in order and returns the matched term and the
// index of the first hit containing it. Term order is significant: earlier
// terms win, which keeps rule output deterministic.
func (e *Evidence) firstHitWithAny(terms []string) (string, int) {
	for _, term := range terms {
		if idx := e.hitContaining(term); idx >= 0 {
			return term, idx
		}
	}
	return "", -1
}

// Rule is one row of a decision table. Eval reports whether the rule fired,
// a detail string substituted into Message, and the index of the supporting
// hit in the evidence (-1 when the rule is not tied to a specific clause).
type Rule struct {
	Name    string
	Weight  float64
	Message string
	Eval    func(q *queryparser.ParsedQuery, ev *Evidence) (fired bool, detail string, hit int)
}

// firing records a rule that fired during evaluation.
type firing struct {
	rule   Rule
	detail string
	hit    int
}

func (f firing) message() string {
	if strings.Contains(f.rule.Message, "%s") {
		return fmt.Sprintf(f.rule.Message, f.detail)
	}
	return f.rule.Message
}

// Vocabulary scanned by the generic language rules. Slice order determines
// which term is reported when several occur.
var (
	coverageTerms  = []string{"covered", "coverage", "eligible", "entitled", "included", "benefit", "reimburse"}
	exclusionTerms = []string{"not covered", "excluded", "exclusion", "denied", "pre-existing", "restricted"}

	complianceTerms = []string{"complies", "in accordance", "conforms", "satisfies", "permitted", "lawful"}
	violationTerms  = []string{"violates", "violation", "breach", "non-compliance", "prohibited", "unlawful", "fails to meet"}

	hrEligibleTerms   = []string{"eligible", "entitled", "qualified", "granted"}
	hrIneligibleTerms = []string{"not eligible", "ineligible", "forfeited", "probation"}

	networkTerms = []string{"network", "empanelled", "empaneled", "listed hospital", "approved facility"}
)

var (
	waitingPeriodPattern = regexp.MustCompile(`waiting\s+period\s+of\s+(\d+)\s*(day|month|year)s?`)
	coverageLimitPattern = regexp.MustCompile(`(?:limit|maximum|up\s+to|capped\s+at)\s+(?:of\s+)?(?:rs\.?|inr|usd|\$|₹)?\s*([\d,]+)`)
)

// parseWaitingMonths extracts the first waiting-period duration from the
// evidence, in months. Day-denominated periods round up to one month.
func parseWaitingMonths(ev *Evidence) (int, bool) {
	m := waitingPeriodPattern.FindStringSubmatch(ev.joined)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "year":
		return n * 12, true
	case "day":
		if n == 0 {
			return 0, true
		}
		return (n + 29) / 30, true
	default:
		return n, true
	}
}

// parseCoverageLimit extracts the first monetary coverage limit mentioned in
// the evidence.
func parseCoverageLimit(ev *Evidence) (float64, bool) {
	m := coverageLimitPattern.FindStringSubmatch(ev.joined)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryAmount(q *queryparser.ParsedQuery) (float64, bool) {
	raw, ok := q.Fields[queryparser.FieldAmount]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryAge(q *queryparser.ParsedQuery) (int, bool) {
	raw, ok := q.Fields[queryparser.FieldAge]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Generic rules shared by several domain tables.

func ruleCoverageLanguage(weight float64) Rule {
	return Rule{
		Name:    "coverage_language",
		Weight:  weight,
		Message: "document contains coverage language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(coverageTerms)
			return idx >= 0, term, idx
		},
	}
}

func ruleExclusionLanguage(weight float64) Rule {
	return Rule{
		Name:    "exclusion_language",
		Weight:  weight,
		Message: "document contains exclusion language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(exclusionTerms)
			return idx >= 0, term, idx
		},
	}
}

func ruleSubjectCited(weight float64) Rule {
	return Rule{
		Name:    "subject_cited",
		Weight:  weight,
		Message: "the requested subject %q appears in the retrieved clauses",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			proc, ok := q.Fields[queryparser.FieldProcedure]
			if !ok || proc == "" {
				return false, "", -1
			}
			idx := ev.hitContaining(strings.ToLower(proc))
			return idx >= 0, proc, idx
		},
	}
}

// insuranceRules is the decision table for insurance queries. Weights mirror
// the relative force of each signal: exclusions and unmet waiting periods
// outweigh generic coverage language.
var insuranceRules = []Rule{
	ruleCoverageLanguage(1.5),
	ruleExclusionLanguage(-2.0),
	ruleSubjectCited(1.5),
	{
		Name:    "age_within_standard_range",
		Weight:  1.0,
		Message: "applicant age %s falls within the standard 18-65 eligibility band",
		Eval: func(q *queryparser.ParsedQuery, _ *Evidence) (bool, string, int) {
			age, ok := queryAge(q)
			if !ok || age < 18 || age > 65 {
				return false, "", -1
			}
			return true, strconv.Itoa(age), -1
		},
	},
	{
		Name:    "age_outside_standard_range",
		Weight:  -0.5,
		Message: "applicant age %s is outside the standard 18-65 eligibility band",
		Eval: func(q *queryparser.ParsedQuery, _ *Evidence) (bool, string, int) {
			age, ok := queryAge(q)
			if !ok || (age >= 18 && age <= 65) {
				return false, "", -1
			}
			return true, strconv.Itoa(age), -1
		},
	},
	{
		Name:    "waiting_period_satisfied",
		Weight:  1.5,
		Message: "policy duration satisfies the documented waiting period (%s)",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			need, ok := parseWaitingMonths(ev)
			if !ok {
				return false, "", -1
			}
			have, ok := queryparser.DurationMonths(q.Fields[queryparser.FieldPolicyDuration])
			if !ok || have < need {
				return false, "", -1
			}
			idx := ev.hitContaining("waiting period")
			return true, fmt.Sprintf("%d months required, %d held", need, have), idx
		},
	},
	{
		Name:    "waiting_period_not_met",
		Weight:  -2.0,
		Message: "policy duration does not satisfy the documented waiting period (%s)",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			need, ok := parseWaitingMonths(ev)
			if !ok {
				return false, "", -1
			}
			have, ok := queryparser.DurationMonths(q.Fields[queryparser.FieldPolicyDuration])
			if !ok || have >= need {
				return false, "", -1
			}
			idx := ev.hitContaining("waiting period")
			return true, fmt.Sprintf("%d months required, only %d held", need, have), idx
		},
	},
	{
		Name:    "mature_policy",
		Weight:  0.5,
		Message: "policy has been active for %s",
		Eval: func(q *queryparser.ParsedQuery, _ *Evidence) (bool, string, int) {
			have, ok := queryparser.DurationMonths(q.Fields[queryparser.FieldPolicyDuration])
			if !ok || have < 12 {
				return false, "", -1
			}
			return true, q.Fields[queryparser.FieldPolicyDuration], -1
		},
	},
	{
		Name:    "new_policy",
		Weight:  -0.5,
		Message: "policy is recent (%s), which commonly falls inside initial waiting windows",
		Eval: func(q *queryparser.ParsedQuery, _ *Evidence) (bool, string, int) {
			have, ok := queryparser.DurationMonths(q.Fields[queryparser.FieldPolicyDuration])
			if !ok || have >= 6 {
				return false, "", -1
			}
			return true, q.Fields[queryparser.FieldPolicyDuration], -1
		},
	},
	{
		Name:    "location_in_network",
		Weight:  0.5,
		Message: "treatment location %s appears alongside network language",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			loc, ok := q.Fields[queryparser.FieldLocation]
			if !ok || loc == "" {
				return false, "", -1
			}
			idx := ev.hitContaining(strings.ToLower(loc))
			if idx < 0 {
				return false, "", -1
			}
			if _, netIdx := ev.firstHitWithAny(networkTerms); netIdx < 0 {
				return false, "", -1
			}
			return true, loc, idx
		},
	},
	{
		Name:    "amount_within_limit",
		Weight:  0.5,
		Message: "claimed amount sits within the documented coverage limit (%s)",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			amount, ok := queryAmount(q)
			if !ok {
				return false, "", -1
			}
			limit, ok := parseCoverageLimit(ev)
			if !ok || amount > limit {
				return false, "", -1
			}
			idx := ev.hitContaining("limit")
			return true, fmt.Sprintf("%.0f of %.0f", amount, limit), idx
		},
	},
	{
		Name:    "amount_exceeds_limit",
		Weight:  -1.5,
		Message: "claimed amount exceeds the documented coverage limit (%s)",
		Eval: func(q *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			amount, ok := queryAmount(q)
			if !ok {
				return false, "", -1
			}
			limit, ok := parseCoverageLimit(ev)
			if !ok || amount <= limit {
				return false, "", -1
			}
			idx := ev.hitContaining("limit")
			return true, fmt.Sprintf("%.0f against %.0f", amount, limit), idx
		},
	},
}

// legalRules is the decision table for legal queries.
var legalRules = []Rule{
	{
		Name:    "compliance_language",
		Weight:  2.0,
		Message: "document contains affirmative compliance language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(complianceTerms)
			return idx >= 0, term, idx
		},
	},
	{
		Name:    "violation_language",
		Weight:  -2.0,
		Message: "document contains violation language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(violationTerms)
			return idx >= 0, term, idx
		},
	},
	ruleSubjectCited(1.0),
}

// hrRules is the decision table for HR queries.
var hrRules = []Rule{
	{
		Name:    "eligibility_language",
		Weight:  2.0,
		Message: "document contains eligibility language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(hrEligibleTerms)
			return idx >= 0, term, idx
		},
	},
	{
		Name:    "ineligibility_language",
		Weight:  -2.0,
		Message: "document contains ineligibility language (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(hrIneligibleTerms)
			return idx >= 0, term, idx
		},
	},
	ruleSubjectCited(1.0),
	{
		Name:    "tenure_established",
		Weight:  1.0,
		Message: "employee tenure of %s satisfies common service requirements",
		Eval: func(q *queryparser.ParsedQuery, _ *Evidence) (bool, string, int) {
			have, ok := queryparser.DurationMonths(q.Fields[queryparser.FieldPolicyDuration])
			if !ok || have < 12 {
				return false, "", -1
			}
			return true, q.Fields[queryparser.FieldPolicyDuration], -1
		},
	},
}

// complianceRules is the decision table for regulatory-compliance queries.
var complianceRules = []Rule{
	{
		Name:    "standard_met",
		Weight:  2.0,
		Message: "document affirms the standard is met (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(complianceTerms)
			return idx >= 0, term, idx
		},
	},
	{
		Name:    "finding_recorded",
		Weight:  -2.0,
		Message: "document records a non-conformity or finding (%q)",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			term, idx := ev.firstHitWithAny(violationTerms)
			return idx >= 0, term, idx
		},
	},
	ruleSubjectCited(1.0),
	{
		Name:    "audit_trail_present",
		Weight:  0.5,
		Message: "document references audit evidence",
		Eval: func(_ *queryparser.ParsedQuery, ev *Evidence) (bool, string, int) {
			idx := ev.hitContaining("audit")
			return idx >= 0, "", idx
		},
	},
}

// generalRules handles queries that classify into no specific domain.
var generalRules = []Rule{
	ruleCoverageLanguage(1.5),
	ruleExclusionLanguage(-1.5),
	ruleSubjectCited(1.5),
}

// rulesForDomain returns the decision table for a classified domain.
// Unknown domains fall back to the general table.
func rulesForDomain(domain queryparser.Domain) []Rule {
	switch domain {
	case queryparser.DomainInsurance:
		return insuranceRules
	case queryparser.DomainLegal:
		return legalRules
	case queryparser.DomainHR:
		return hrRules
	case queryparser.DomainCompliance:
		return complianceRules
	default:
		return generalRules
	}
}
