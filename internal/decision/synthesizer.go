package decision

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

var synthTracer = otel.Tracer("verdictd.decision")

// Synthesizer turns a parsed query plus retrieval evidence into a Decision.
// It is stateless beyond its configuration and safe for concurrent use.
type Synthesizer struct {
	config Config
	logger *zap.Logger
}

// NewSynthesizer creates a Synthesizer with the given configuration.
func NewSynthesizer(config Config, logger *zap.Logger) (*Synthesizer, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{config: config, logger: logger}, nil
}

// Decide evaluates the domain rule table against the query and evidence and
// classifies the aggregate score. It never returns an error for thin or
// missing evidence; those cases resolve to a pending decision with elevated
// risk so the caller always gets an explainable outcome.
func (s *Synthesizer) Decide(ctx context.Context, query *queryparser.ParsedQuery, res *retrieval.Result) *Decision {
	_, span := synthTracer.Start(ctx, "decision.Decide")
	defer span.End()

	ev := NewEvidence(res)
	if ev.Empty() {
		d := s.pendingForEmptyEvidence(query, res)
		span.SetAttributes(attribute.String("decision.status", string(d.Status)))
		return d
	}

	rules := rulesForDomain(query.Domain)
	var (
		score   float64
		firings []firing
	)
	for _, rule := range rules {
		fired, detail, hit := rule.Eval(query, ev)
		if !fired {
			continue
		}
		score += rule.Weight
		firings = append(firings, firing{rule: rule, detail: detail, hit: hit})
	}

	status := s.classify(score)
	d := &Decision{
		Status:           status,
		Confidence:       s.confidence(score),
		Risk:             s.risk(query, ev, firings),
		Score:            score,
		Justification:    s.justification(status, query, firings),
		Factors:          factorMessages(firings),
		ClauseReferences: s.clauseReferences(ev, firings),
		Recommendations:  recommendations(status, firings),
		NextSteps:        nextSteps(status),
	}

	span.SetAttributes(
		attribute.String("decision.status", string(d.Status)),
		attribute.Float64("decision.score", d.Score),
		attribute.Int("decision.fired_rules", len(firings)),
	)
	s.logger.Debug("decision synthesized",
		zap.String("domain", string(query.Domain)),
		zap.String("status", string(d.Status)),
		zap.Float64("score", d.Score),
		zap.Int("fired_rules", len(firings)))
	return d
}

func (s *Synthesizer) classify(score float64) Status {
	switch {
	case score >= s.config.ApproveThreshold:
		return StatusApproved
	case score <= s.config.RejectThreshold:
		return StatusRejected
	default:
		return StatusPending
	}
}

// confidence grades the distance between the score and whichever threshold
// sits nearest. A score exactly on a boundary carries zero margin and grades
// low: the decision flipped on the last half point of evidence.
func (s *Synthesizer) confidence(score float64) Confidence {
	margin := math.Min(
		math.Abs(score-s.config.ApproveThreshold),
		math.Abs(score-s.config.RejectThreshold),
	)
	switch {
	case margin >= s.config.HighMargin:
		return ConfidenceHigh
	case margin >= s.config.MediumMargin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// risk applies the secondary risk rules and keeps the highest level reached.
func (s *Synthesizer) risk(query *queryparser.ParsedQuery, ev *Evidence, firings []firing) RiskLevel {
	level := RiskLow
	raise := func(to RiskLevel) {
		if riskRankOf(to) > riskRankOf(level) {
			level = to
		}
	}

	if ev.Empty() {
		raise(RiskHigh)
	}

	_, hasAge := query.Fields[queryparser.FieldAge]
	_, hasDuration := query.Fields[queryparser.FieldPolicyDuration]
	switch {
	case !hasAge && !hasDuration:
		raise(RiskHigh)
	case !hasAge || !hasDuration:
		raise(RiskMedium)
	}

	var positive, negative bool
	for _, f := range firings {
		if f.rule.Weight > 0 {
			positive = true
		}
		if f.rule.Weight < 0 {
			negative = true
		}
	}
	if positive && negative {
		raise(RiskMedium)
	}
	return level
}

func (s *Synthesizer) justification(status Status, query *queryparser.ParsedQuery, firings []firing) string {
	var b strings.Builder
	switch status {
	case StatusApproved:
		fmt.Fprintf(&b, "The %s request is supported by the document.", query.Domain)
	case StatusRejected:
		fmt.Fprintf(&b, "The %s request is not supported by the document.", query.Domain)
	default:
		fmt.Fprintf(&b, "The %s request cannot be conclusively resolved from the document.", query.Domain)
	}

	if len(firings) == 0 {
		b.WriteString(" No decision factors matched the retrieved clauses.")
		return b.String()
	}

	// Strongest signals first.
	ordered := make([]firing, len(firings))
	copy(ordered, firings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return math.Abs(ordered[i].rule.Weight) > math.Abs(ordered[j].rule.Weight)
	})
	for _, f := range ordered {
		b.WriteString(" ")
		msg := f.message()
		b.WriteString(strings.ToUpper(msg[:1]))
		b.WriteString(msg[1:])
		b.WriteString(".")
	}
	return b.String()
}

func factorMessages(firings []firing) []string {
	if len(firings) == 0 {
		return nil
	}
	out := make([]string, len(firings))
	for i, f := range firings {
		out[i] = f.message()
	}
	return out
}

// clauseReferences returns verbatim excerpts of the chunks backing the two
// highest-weighted fired rules, ordered by retrieval rank. Rules without a
// supporting hit contribute nothing.
func (s *Synthesizer) clauseReferences(ev *Evidence, firings []firing) []string {
	backed := make([]firing, 0, len(firings))
	for _, f := range firings {
		if f.hit >= 0 && f.hit < len(ev.Hits) {
			backed = append(backed, f)
		}
	}
	sort.SliceStable(backed, func(i, j int) bool {
		return math.Abs(backed[i].rule.Weight) > math.Abs(backed[j].rule.Weight)
	})
	if len(backed) > 2 {
		backed = backed[:2]
	}

	seen := make(map[int]bool, len(backed))
	hitIdxs := make([]int, 0, len(backed))
	for _, f := range backed {
		if !seen[f.hit] {
			seen[f.hit] = true
			hitIdxs = append(hitIdxs, f.hit)
		}
	}
	sort.Ints(hitIdxs)

	refs := make([]string, 0, len(hitIdxs))
	for _, idx := range hitIdxs {
		refs = append(refs, s.excerpt(ev.Hits[idx].Chunk.Text))
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

// excerpt truncates text to the configured excerpt length on a rune
// boundary, trimming back to the last space when one is close enough to
// avoid splitting a word.
func (s *Synthesizer) excerpt(text string) string {
	text = strings.TrimSpace(text)
	limit := s.config.ExcerptLength
	if limit == 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if sp := strings.LastIndexByte(text[:cut], ' '); sp > cut-40 && sp > 0 {
		cut = sp
	}
	return strings.TrimSpace(text[:cut]) + "…"
}

func (s *Synthesizer) pendingForEmptyEvidence(query *queryparser.ParsedQuery, res *retrieval.Result) *Decision {
	reason := "insufficient evidence was retrieved for this query"
	if res == nil || res.TotalChunks == 0 {
		reason = "the document contains no content to analyze"
	}
	return &Decision{
		Status:        StatusPending,
		Confidence:    ConfidenceLow,
		Risk:          RiskHigh,
		Score:         0,
		Justification: fmt.Sprintf("The %s request cannot be resolved: %s.", query.Domain, reason),
		Recommendations: []string{
			"Provide a document that addresses the request directly.",
			"Rephrase the query using terminology from the document.",
		},
		NextSteps: nextSteps(StatusPending),
	}
}

func recommendations(status Status, firings []firing) []string {
	var recs []string
	switch status {
	case StatusApproved:
		recs = append(recs,
			"Collect the supporting paperwork referenced by the cited clauses before filing.",
			"Confirm the figures quoted in the request against the document's stated limits.")
	case StatusRejected:
		recs = append(recs,
			"Review the cited exclusions with the document issuer before resubmitting.",
			"Check whether an endorsement or rider lifts the blocking condition.")
	default:
		recs = append(recs,
			"Supply the missing details flagged in the risk assessment and resubmit.",
			"Request a manual review where the document is silent on the decisive point.")
	}
	for _, f := range firings {
		switch f.rule.Name {
		case "waiting_period_not_met":
			recs = append(recs, "Resubmit once the documented waiting period has elapsed.")
		case "amount_exceeds_limit":
			recs = append(recs, "Split the claim or adjust it to fall inside the documented limit.")
		}
	}
	return recs
}

func nextSteps(status Status) []string {
	switch status {
	case StatusApproved:
		return []string{
			"Submit the request through the issuer's standard channel.",
			"Retain a copy of the cited clauses with the submission.",
		}
	case StatusRejected:
		return []string{
			"Obtain the issuer's written grounds for denial.",
			"Evaluate the appeal window stated in the document.",
		}
	default:
		return []string{
			"Gather the missing applicant details identified above.",
			"Escalate to a human reviewer with the cited clauses attached.",
		}
	}
}
