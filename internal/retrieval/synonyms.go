package retrieval

// synonyms is the fixed domain-synonym table used to expand queries before
// TF-IDF vectorization. Expansion is additive: original terms are kept and
// related terms appended, so a chunk phrased differently from the query can
// still share vocabulary with it.
var synonyms = map[string][]string{
	// medical / insurance
	"knee":      {"patella", "orthopedic", "joint"},
	"hip":       {"orthopedic", "joint", "arthroplasty"},
	"heart":     {"cardiac", "cardiovascular", "bypass"},
	"brain":     {"neurological", "neurosurgery", "craniotomy"},
	"surgery":   {"procedure", "operation", "surgical"},
	"doctor":    {"physician", "practitioner"},
	"hospital":  {"clinic", "facility", "medical"},
	"policy":    {"coverage", "plan", "insurance"},
	"claim":     {"reimbursement", "coverage"},
	"premium":   {"payment", "installment"},
	"accident":  {"injury", "emergency"},
	"treatment": {"therapy", "care", "procedure"},

	// legal / compliance
	"contract":   {"agreement", "terms"},
	"breach":     {"violation", "default"},
	"regulation": {"rule", "statute", "requirement"},
	"audit":      {"review", "inspection"},
	"penalty":    {"fine", "sanction"},

	// hr
	"employee": {"staff", "worker", "personnel"},
	"leave":    {"absence", "vacation"},
	"salary":   {"compensation", "pay", "wages"},
	"benefits": {"entitlements", "perks"},
}

// expandQuery appends synonym terms for every query token that has an entry
// in the table. Order is deterministic: original tokens first, then
// expansions in token order.
func expandQuery(tokens []string) []string {
	expanded := make([]string, 0, len(tokens))
	expanded = append(expanded, tokens...)
	for _, token := range tokens {
		expanded = append(expanded, synonyms[token]...)
	}
	return expanded
}
