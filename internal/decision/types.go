// Package decision synthesizes structured decisions from parsed queries and
// retrieved evidence.
//
// Decision logic is data driven: each domain carries a declarative table of
// (condition, weight, message) rules evaluated by a single interpreter. The
// same inputs always produce the same Decision; there is no randomness and
// no hidden state.
package decision

import (
	"errors"
	"fmt"
)

// Sentinel errors for decision operations.
var (
	// ErrInvalidConfig indicates invalid synthesizer configuration.
	ErrInvalidConfig = errors.New("invalid decision configuration")
)

// Status is the outcome classification of a decision.
type Status string

// Decision statuses.
const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
)

// Confidence grades how far the aggregate score sits from the nearest
// classification threshold.
type Confidence string

// Confidence grades.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RiskLevel grades the risk attached to acting on the decision.
type RiskLevel string

// Risk levels. RiskHigh is the "elevated" level forced by missing evidence.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func riskRankOf(level RiskLevel) int {
	switch level {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Decision is the synthesized outcome for one request. Decisions are value
// objects: computed fresh per request and never mutated after creation.
type Decision struct {
	// Status is the outcome classification.
	Status Status `json:"status"`

	// Confidence grades the margin between score and threshold.
	Confidence Confidence `json:"confidence"`

	// Risk is derived from the secondary risk rule set.
	Risk RiskLevel `json:"risk"`

	// Score is the aggregate of fired rule weights.
	Score float64 `json:"score"`

	// Justification is the templated human-readable summary.
	Justification string `json:"justification"`

	// Factors lists the fired rules' messages in rule-table order.
	Factors []string `json:"factors"`

	// ClauseReferences are verbatim chunk excerpts backing the two
	// highest-weighted fired rules, in retrieval rank order.
	ClauseReferences []string `json:"clause_references"`

	// Recommendations and NextSteps are advisory follow-ups keyed off
	// the status and fired rules.
	Recommendations []string `json:"recommendations"`
	NextSteps       []string `json:"next_steps"`
}

// Config holds synthesizer thresholds. Both decision boundaries are closed:
// a score exactly on ApproveThreshold resolves to approved and a score
// exactly on RejectThreshold resolves to rejected.
type Config struct {
	// ApproveThreshold is the minimum aggregate score for approval.
	ApproveThreshold float64 `koanf:"approve_threshold"`

	// RejectThreshold is the maximum aggregate score for rejection.
	RejectThreshold float64 `koanf:"reject_threshold"`

	// HighMargin and MediumMargin grade confidence from the distance
	// between the score and the nearest threshold.
	HighMargin   float64 `koanf:"high_margin"`
	MediumMargin float64 `koanf:"medium_margin"`

	// ExcerptLength bounds clause-reference excerpts, in bytes.
	ExcerptLength int `koanf:"excerpt_length"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ApproveThreshold == 0 {
		c.ApproveThreshold = 3.0
	}
	if c.RejectThreshold == 0 {
		c.RejectThreshold = -3.0
	}
	if c.HighMargin == 0 {
		c.HighMargin = 2.0
	}
	if c.MediumMargin == 0 {
		c.MediumMargin = 0.75
	}
	if c.ExcerptLength == 0 {
		c.ExcerptLength = 240
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ApproveThreshold <= c.RejectThreshold {
		return fmt.Errorf("%w: approve_threshold %v must exceed reject_threshold %v",
			ErrInvalidConfig, c.ApproveThreshold, c.RejectThreshold)
	}
	if c.HighMargin <= 0 || c.MediumMargin <= 0 {
		return fmt.Errorf("%w: confidence margins must be positive", ErrInvalidConfig)
	}
	if c.HighMargin < c.MediumMargin {
		return fmt.Errorf("%w: high_margin %v must be at least medium_margin %v",
			ErrInvalidConfig, c.HighMargin, c.MediumMargin)
	}
	if c.ExcerptLength < 0 {
		return fmt.Errorf("%w: excerpt_length must be non-negative", ErrInvalidConfig)
	}
	return nil
}
