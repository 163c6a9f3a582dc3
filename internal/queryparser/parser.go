// Package queryparser extracts structured fields and a domain tag from
// free-text queries.
//
// Extraction is pattern based: each field carries an ordered list of
// alternative expressions and the first match wins. Pattern order is part of
// this package's contract; reordering changes behavior for inputs that match
// more than one expression. Fields with no match are omitted from the
// result, which is never an error.
package queryparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field names used as keys in ParsedQuery.Fields.
const (
	FieldAge            = "age"
	FieldGender         = "gender"
	FieldProcedure      = "procedure"
	FieldLocation       = "location"
	FieldPolicyDuration = "policy_duration"
	FieldAmount         = "amount"
	FieldUrgency        = "urgency"
	FieldCondition      = "condition"
)

// ParsedQuery is the structured form of a free-text query. It is created
// once per request and immutable thereafter.
type ParsedQuery struct {
	// Raw is the original query text.
	Raw string `json:"raw"`

	// Fields maps field name to extracted value. Only successfully
	// matched fields are present.
	Fields map[string]string `json:"fields"`

	// Domain is the classified domain tag.
	Domain Domain `json:"domain"`
}

// Field returns the value for a field name and whether it was extracted.
func (q *ParsedQuery) Field(name string) (string, bool) {
	v, ok := q.Fields[name]
	return v, ok
}

// extractor binds a field name to its ordered alternative patterns. Each
// pattern's first capture group is the raw value; normalize cleans it up or
// rejects it by returning "".
type extractor struct {
	field     string
	patterns  []*regexp.Regexp
	normalize func(match []string) string
}

// extractors is evaluated in declaration order; within a field, the first
// matching pattern wins and later patterns are never consulted.
var extractors = []extractor{
	{
		field: FieldAge,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*(?:years?|yrs?|y)[\s-]*(?:old|of age)\b`),
			regexp.MustCompile(`\b(\d{1,3})[MF]\b`),
			regexp.MustCompile(`(?i)\bage\s*:?\s*(\d{1,3})\b`),
			regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:male|female|man|woman)\b`),
		},
		normalize: normalizeAge,
	},
	{
		field: FieldGender,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(male|female|man|woman)\b`),
			regexp.MustCompile(`\b\d{1,3}([MF])\b`),
		},
		normalize: normalizeGender,
	},
	{
		field: FieldProcedure,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(knee|hip|heart|brain|liver|kidney|lung|spine|shoulder|ankle|wrist|back|neck|eye|dental|cardiac|orthopedic|neurological|cosmetic)\s+(surgery|procedure|operation|treatment|repair|replacement|implant|transplant)\b`),
			regexp.MustCompile(`(?i)\b(surgery|operation|procedure|treatment)\s+(?:for|on|of)\s+([a-zA-Z][a-zA-Z ]*?)(?:,|\.|$)`),
		},
		normalize: normalizeProcedure,
	},
	{
		field: FieldLocation,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:\bin|\bat|\bfrom|\bnear)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`),
			regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)\s+(?:hospital|clinic|center|medical)\b`),
		},
		normalize: normalizeLocation,
	},
	{
		field: FieldPolicyDuration,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(\d+)[\s-]*(months?|mon|years?|yrs?)[\s-]*(?:old\s+)?(?:insurance\s+)?policy\b`),
			regexp.MustCompile(`(?i)\bpolicy\s+(?:of|for)\s+(\d+)\s*(months?|mon|years?|yrs?)\b`),
			regexp.MustCompile(`(?i)\b(\d+)[\s-]*(months?|mon|years?|yrs?)[\s-]*(?:old|existing|active)\b`),
		},
		normalize: normalizeDuration,
	},
	{
		field: FieldAmount,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:amount|cost|expense|bill|claim)\s*(?:of|for)?\s*[$₹€£]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
			regexp.MustCompile(`[$₹€£]\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
			regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*(?:dollars|rupees|euros|pounds|rs|inr)\b`),
		},
		normalize: normalizeAmount,
	},
	{
		field: FieldUrgency,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(emergency|urgent|immediate|critical)\b`),
			regexp.MustCompile(`(?i)\b(elective|planned|scheduled|routine)\b`),
		},
		normalize: normalizeUrgency,
	},
	{
		field: FieldCondition,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:diagnosed with|suffering from)\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+for\b|\s+since\b|,|\.|$)`),
			regexp.MustCompile(`(?i)\b(?:pre-?existing|chronic|acute)\s+([a-zA-Z][a-zA-Z ]*?)(?:\s+condition\b|,|\.|$)`),
		},
		normalize: normalizeCondition,
	},
}

// Parse extracts structured fields and a domain tag from query text. It is
// a pure function: no state, no side effects.
func Parse(query string) *ParsedQuery {
	fields := make(map[string]string)
	for _, ex := range extractors {
		for _, pattern := range ex.patterns {
			match := pattern.FindStringSubmatch(query)
			if match == nil {
				continue
			}
			if value := ex.normalize(match); value != "" {
				fields[ex.field] = value
				break
			}
		}
	}

	return &ParsedQuery{
		Raw:    query,
		Fields: fields,
		Domain: ClassifyDomain(query),
	}
}

func normalizeAge(match []string) string {
	age, err := strconv.Atoi(match[1])
	if err != nil || age < 0 || age > 120 {
		return ""
	}
	return strconv.Itoa(age)
}

func normalizeGender(match []string) string {
	switch strings.ToLower(match[1]) {
	case "male", "man", "m":
		return "male"
	case "female", "woman", "f":
		return "female"
	}
	return ""
}

func normalizeProcedure(match []string) string {
	parts := make([]string, 0, 2)
	for _, g := range match[1:] {
		g = strings.TrimSpace(strings.ToLower(g))
		if g != "" {
			parts = append(parts, g)
		}
	}
	return strings.Join(parts, " ")
}

// locationStoplist filters capitalized words that the location patterns
// match but that are never place names.
var locationStoplist = map[string]bool{
	"old": true, "year": true, "years": true, "month": true, "months": true,
	"policy": true, "insurance": true, "male": true, "female": true,
	"surgery": true, "the": true,
}

func normalizeLocation(match []string) string {
	location := strings.TrimSpace(match[1])
	if locationStoplist[strings.ToLower(location)] {
		return ""
	}
	return location
}

func normalizeDuration(match []string) string {
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return ""
	}
	unit := "months"
	if strings.HasPrefix(strings.ToLower(match[2]), "y") {
		unit = "years"
	}
	return fmt.Sprintf("%d %s", n, unit)
}

func normalizeAmount(match []string) string {
	return strings.ReplaceAll(match[1], ",", "")
}

func normalizeUrgency(match []string) string {
	switch strings.ToLower(match[1]) {
	case "emergency", "urgent", "immediate", "critical":
		return "emergency"
	default:
		return "elective"
	}
}

func normalizeCondition(match []string) string {
	return strings.ToLower(strings.TrimSpace(match[1]))
}

// DurationMonths converts a normalized policy_duration value ("3 months",
// "2 years") to months. Returns false for values it cannot interpret.
func DurationMonths(value string) (int, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	switch parts[1] {
	case "months", "month":
		return n, true
	case "years", "year":
		return n * 12, true
	}
	return 0, false
}

// Summary renders a one-line human-readable description of the extracted
// fields, used in responses and justifications.
func (q *ParsedQuery) Summary() string {
	var parts []string

	age, hasAge := q.Fields[FieldAge]
	gender, hasGender := q.Fields[FieldGender]
	switch {
	case hasAge && hasGender:
		parts = append(parts, fmt.Sprintf("%s-year-old %s", age, gender))
	case hasAge:
		parts = append(parts, fmt.Sprintf("%s years old", age))
	case hasGender:
		parts = append(parts, gender)
	}

	if procedure, ok := q.Fields[FieldProcedure]; ok {
		parts = append(parts, "requiring "+procedure)
	}
	if location, ok := q.Fields[FieldLocation]; ok {
		parts = append(parts, "in "+location)
	}
	if duration, ok := q.Fields[FieldPolicyDuration]; ok {
		parts = append(parts, fmt.Sprintf("with a %s policy", duration))
	}
	if amount, ok := q.Fields[FieldAmount]; ok {
		parts = append(parts, "claiming "+amount)
	}

	if len(parts) == 0 {
		return "query with no extractable fields"
	}
	return strings.Join(parts, ", ")
}
