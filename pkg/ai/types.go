package ai

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the external model could not be reached or did
// not answer in time. Retryable by the caller.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrSchemaViolation indicates the model answered but the payload failed
// verdict schema validation. Malformed output is never passed downstream.
var ErrSchemaViolation = errors.New("model response violates verdict schema")

// Evidence bundles the artefacts a citizen attached to a report.
type Evidence struct {
	ImageURL string
	Notes    string
}

// Describer turns raw evidence into a compact textual description of observed
// site conditions. Output is best-effort natural language, not deterministic.
type Describer interface {
	Describe(ctx context.Context, evidence Evidence) (string, error)
}

// ProjectFacts carries the official record fields embedded into the verdict
// prompt.
type ProjectFacts struct {
	ID          string
	Name        string
	Category    string
	BudgetPaise int64
	Contractor  string
	Status      string
	Description string
}

// VerdictInput pairs a matched project record with the evidence description.
type VerdictInput struct {
	Project     ProjectFacts
	Description string
}

// VerdictResult is the structured risk judgement returned by the model.
// Confidence is model-reported and clamped to [0,1] before it leaves this
// package.
type VerdictResult struct {
	RiskLevel     string                 `json:"riskLevel"`
	Discrepancies []string               `json:"discrepancies"`
	Reasoning     string                 `json:"reasoning"`
	Confidence    float64                `json:"confidenceScore"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// Judge compares a project record against an evidence description and
// classifies the risk of irregularity.
type Judge interface {
	Evaluate(ctx context.Context, input VerdictInput) (VerdictResult, error)
}
