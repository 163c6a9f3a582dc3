package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimQuery(t *testing.T) {
	q := Parse("46-year-old male, knee surgery in Mumbai, 3-month policy")

	assert.Equal(t, "46", q.Fields[FieldAge])
	assert.Equal(t, "male", q.Fields[FieldGender])
	assert.Equal(t, "knee surgery", q.Fields[FieldProcedure])
	assert.Equal(t, "Mumbai", q.Fields[FieldLocation])
	assert.Equal(t, "3 months", q.Fields[FieldPolicyDuration])
	assert.Equal(t, DomainInsurance, q.Domain)
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
		want  string
	}{
		{
			name:  "age spelled out",
			query: "a 30 years old applicant",
			field: FieldAge,
			want:  "30",
		},
		{
			name:  "compact age gender form",
			query: "46M, knee surgery, Pune",
			field: FieldAge,
			want:  "46",
		},
		{
			name:  "gender from compact form",
			query: "32F requesting maternity coverage",
			field: FieldGender,
			want:  "female",
		},
		{
			name:  "procedure body part plus kind",
			query: "needs hip replacement under the policy",
			field: FieldProcedure,
			want:  "hip replacement",
		},
		{
			name:  "procedure prepositional form",
			query: "surgery for cataract, left eye",
			field: FieldProcedure,
			want:  "surgery cataract",
		},
		{
			name:  "location after preposition",
			query: "treatment in New Delhi next month",
			field: FieldLocation,
			want:  "New Delhi",
		},
		{
			name:  "duration in years",
			query: "holds a 2-year policy",
			field: FieldPolicyDuration,
			want:  "2 years",
		},
		{
			name:  "amount with currency symbol",
			query: "claim of $45,000 for surgery",
			field: FieldAmount,
			want:  "45000",
		},
		{
			name:  "urgency emergency",
			query: "emergency admission last night",
			field: FieldUrgency,
			want:  "emergency",
		},
		{
			name:  "urgency elective",
			query: "planned knee surgery in March",
			field: FieldUrgency,
			want:  "elective",
		},
		{
			name:  "condition diagnosed",
			query: "diagnosed with diabetes, on insulin",
			field: FieldCondition,
			want:  "diabetes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.query)
			got, ok := q.Field(tt.field)
			require.True(t, ok, "field %s not extracted from %q", tt.field, tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMissingFieldsOmitted(t *testing.T) {
	q := Parse("is physiotherapy covered?")

	_, hasAge := q.Field(FieldAge)
	_, hasDuration := q.Field(FieldPolicyDuration)
	assert.False(t, hasAge)
	assert.False(t, hasDuration)
	assert.Equal(t, "is physiotherapy covered?", q.Raw)
}

func TestParseRejectsImplausibleAge(t *testing.T) {
	q := Parse("a 300 years old building")
	_, ok := q.Field(FieldAge)
	assert.False(t, ok)
}

func TestDurationMonths(t *testing.T) {
	tests := []struct {
		value string
		want  int
		ok    bool
	}{
		{"3 months", 3, true},
		{"1 month", 1, true},
		{"2 years", 24, true},
		{"1 year", 12, true},
		{"", 0, false},
		{"soon", 0, false},
		{"three months", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := DurationMonths(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummary(t *testing.T) {
	q := Parse("46-year-old male, knee surgery in Mumbai, 3-month policy")
	s := q.Summary()
	assert.Contains(t, s, "46-year-old male")
	assert.Contains(t, s, "knee surgery")
	assert.Contains(t, s, "Mumbai")
}
