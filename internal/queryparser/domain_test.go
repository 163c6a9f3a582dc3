package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Domain
	}{
		{
			name:  "insurance claim",
			query: "knee surgery claim under a 3-month insurance policy",
			want:  DomainInsurance,
		},
		{
			name:  "legal contract",
			query: "does the contract clause create liability under the law",
			want:  DomainLegal,
		},
		{
			name:  "hr leave",
			query: "is the employee entitled to parental leave benefits",
			want:  DomainHR,
		},
		{
			name:  "compliance audit",
			query: "does the audit satisfy the gdpr compliance requirement",
			want:  DomainCompliance,
		},
		{
			name:  "no domain keywords",
			query: "what is the meaning of this paragraph",
			want:  DomainGeneral,
		},
		{
			name:  "empty query",
			query: "",
			want:  DomainGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDomain(tt.query))
		})
	}
}

func TestClassifyDomainTieBreak(t *testing.T) {
	// One insurance keyword and one legal keyword: the earlier declared
	// domain wins the tie.
	assert.Equal(t, DomainInsurance, ClassifyDomain("the policy and the contract"))
}

func TestClassifyDomainCountsRepeats(t *testing.T) {
	// Two legal hits outweigh one insurance hit.
	assert.Equal(t, DomainLegal, ClassifyDomain("the policy contract names a court"))
}

func TestClassifyDomainWholeWordsOnly(t *testing.T) {
	// "lawn" must not count as "law".
	assert.Equal(t, DomainGeneral, ClassifyDomain("mowing the lawn"))
}
