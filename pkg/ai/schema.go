package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const verdictSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["riskLevel", "discrepancies", "reasoning", "confidenceScore"],
  "properties": {
    "riskLevel": {
      "type": "string",
      "enum": ["Low", "Medium", "High", "Unknown"]
    },
    "discrepancies": {
      "type": "array",
      "items": {"type": "string"}
    },
    "reasoning": {"type": "string"},
    "confidenceScore": {"type": "number"}
  }
}`

var verdictSchema = mustCompileVerdictSchema()

func mustCompileVerdictSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", strings.NewReader(verdictSchemaDoc)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("verdict.json")
}

type verdictPayload struct {
	RiskLevel       string   `json:"riskLevel"`
	Discrepancies   []string `json:"discrepancies"`
	Reasoning       string   `json:"reasoning"`
	ConfidenceScore float64  `json:"confidenceScore"`
}

// parseVerdictPayload decodes and schema-validates a model response. Any
// deviation from the contract surfaces as ErrSchemaViolation rather than a
// partially-populated result.
func parseVerdictPayload(content string) (VerdictResult, error) {
	var generic interface{}
	if err := json.Unmarshal([]byte(content), &generic); err != nil {
		return VerdictResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	if err := verdictSchema.Validate(generic); err != nil {
		return VerdictResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return VerdictResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	return VerdictResult{
		RiskLevel:     payload.RiskLevel,
		Discrepancies: payload.Discrepancies,
		Reasoning:     payload.Reasoning,
		Confidence:    clampConfidence(payload.ConfidenceScore),
	}, nil
}

func clampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
