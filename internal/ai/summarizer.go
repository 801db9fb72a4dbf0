package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"pestcrm/internal/app"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// BillingDigest is the structured monthly summary returned by the model.
type BillingDigest struct {
	Headline     string   `json:"headline" jsonschema_description:"One-sentence summary of the month's billing"`
	TotalRevenue string   `json:"total_revenue" jsonschema_description:"The month's total attributed revenue as a decimal string"`
	Highlights   []string `json:"highlights" jsonschema_description:"Notable customers, branches, or operators this month"`
	Anomalies    []string `json:"anomalies" jsonschema_description:"Potential billing issues: customers with sales but no service revenue, incomplete schedules, unusually concentrated revenue"`
}

type SummarizerService interface {
	Summarize(ctx context.Context, result *app.CalendarResult) (*BillingDigest, error)
}

// Summarizer turns a computed calendar result into a short billing digest
// for the back office. It only reads engine output; it never feeds anything
// back into the computation.
type Summarizer struct {
	client *openai.Client
}

func NewSummarizer(apiKey string) *Summarizer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Summarizer{client: &client}
}

func (s *Summarizer) Summarize(ctx context.Context, result *app.CalendarResult) (*BillingDigest, error) {
	if result == nil {
		return nil, fmt.Errorf("no calendar result to summarize")
	}

	input, err := json.Marshal(struct {
		Year      int `json:"year"`
		Month     int `json:"month"`
		Customers any `json:"customers"`
		Branches  any `json:"branches"`
		Operators any `json:"operators"`
		Schedules any `json:"schedules"`
	}{result.Year, result.Month, result.Customers, result.Branches, result.Operators, result.Schedules})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rollups: %w", err)
	}

	prompt := fmt.Sprintf(`You are reviewing a pest-control company's monthly billing rollups.
Write a short digest for the billing team.
Rules:
1. Quote monetary amounts exactly as they appear in the data.
2. Flag customers whose schedules are incomplete.
3. Flag anything that looks like a billing gap (visits with material sales but zero service revenue).
4. Keep highlights and anomalies to at most five entries each.

Rollups:
%s`, input)

	schemaStruct := generateSchema()
	schemaJSON, err := json.Marshal(schemaStruct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "billing_digest",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A monthly billing digest over revenue rollups"),
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var digest BillingDigest
	if err := json.Unmarshal([]byte(content), &digest); err != nil {
		return nil, fmt.Errorf("failed to parse digest: %w", err)
	}
	return &digest, nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v BillingDigest
	return reflector.Reflect(v)
}
