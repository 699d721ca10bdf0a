package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	modelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civiclens",
		Subsystem: "ai",
		Name:      "model_call_duration_seconds",
		Help:      "Duration of external model calls",
	}, []string{"model", "operation"})

	modelCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civiclens",
		Subsystem: "ai",
		Name:      "model_call_failures_total",
		Help:      "Number of failed external model calls",
	}, []string{"model", "operation", "reason"})
)

// OpenAIConfig defines configuration options for the OpenAI-backed describer
// and judge.
type OpenAIConfig struct {
	APIKey      string
	AuditModel  string
	VisionModel string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIClient implements Describer and Judge against the OpenAI chat
// completion API. Each exported method makes exactly one model call; retry
// policy belongs to the caller.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.AuditModel == "" {
		cfg.AuditModel = "gpt-4o-mini"
	}

	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.AuditModel
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/civiclens/civiclens-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIClient{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Describe sends the evidence image and notes to the vision model and returns
// its trimmed description verbatim.
func (c *OpenAIClient) Describe(parent context.Context, evidence Evidence) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.describe", trace.WithAttributes(
		attribute.String("model", c.cfg.VisionModel),
	))
	defer span.End()

	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: describerInstruction(evidence.Notes),
		},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    evidence.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		},
	}

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.VisionModel,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	modelCallDuration.WithLabelValues(c.cfg.VisionModel, "describe").Observe(time.Since(start).Seconds())
	if err != nil {
		modelCallFailures.WithLabelValues(c.cfg.VisionModel, "describe", "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: describe: %v", ErrModelUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices returned", ErrModelUnavailable)
		modelCallFailures.WithLabelValues(c.cfg.VisionModel, "describe", "empty").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Evaluate asks the model to compare the official record against the evidence
// description and returns the schema-validated risk judgement.
func (c *OpenAIClient) Evaluate(parent context.Context, input VerdictInput) (VerdictResult, error) {
	ctx, span := c.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", c.cfg.AuditModel),
		attribute.String("project_id", input.Project.ID),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.AuditModel,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: judgeSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildVerdictPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	modelCallDuration.WithLabelValues(c.cfg.AuditModel, "evaluate").Observe(time.Since(start).Seconds())
	if err != nil {
		modelCallFailures.WithLabelValues(c.cfg.AuditModel, "evaluate", "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerdictResult{}, fmt.Errorf("%w: evaluate: %v", ErrModelUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices returned", ErrModelUnavailable)
		modelCallFailures.WithLabelValues(c.cfg.AuditModel, "evaluate", "empty").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerdictResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseVerdictPayload(content)
	if err != nil {
		modelCallFailures.WithLabelValues(c.cfg.AuditModel, "evaluate", "schema").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VerdictResult{}, err
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func describerInstruction(notes string) string {
	builder := strings.Builder{}
	builder.WriteString("Describe the condition of the public-infrastructure site in this photo. ")
	builder.WriteString("Flag visible defects: potholes, cracks, stalled or abandoned construction, exposed materials. Be concise.")
	if strings.TrimSpace(notes) != "" {
		builder.WriteString("\n\nCitizen notes: ")
		builder.WriteString(strings.TrimSpace(notes))
	}
	return builder.String()
}

func judgeSystemPrompt() string {
	return "You are an infrastructure audit assistant. Compare an official government project record against field evidence " +
		"and respond with a JSON object containing riskLevel (Low, Medium or High), discrepancies (array of short strings), " +
		"reasoning, and confidenceScore (0-1). Flag budget, scope, status and quality mismatches."
}

func buildVerdictPrompt(input VerdictInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Official Project Record\n")
	builder.WriteString(fmt.Sprintf("ID: %s\n", input.Project.ID))
	builder.WriteString(fmt.Sprintf("Name: %s\n", input.Project.Name))
	builder.WriteString(fmt.Sprintf("Category: %s\n", input.Project.Category))
	builder.WriteString(fmt.Sprintf("Budget (smallest currency unit): %d\n", input.Project.BudgetPaise))
	builder.WriteString(fmt.Sprintf("Contractor: %s\n", input.Project.Contractor))
	builder.WriteString(fmt.Sprintf("Status: %s\n", input.Project.Status))
	builder.WriteString("\n## Scope\n")
	builder.WriteString(input.Project.Description)
	builder.WriteString("\n\n## Field Evidence Description\n")
	builder.WriteString(input.Description)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}
