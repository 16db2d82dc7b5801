package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
)

const (
	openAIRequestTimeout  = 60 * time.Second
	openAIMaxOutputTokens = 400
)

var (
	SentimentLabels = []string{models.LabelPositive, models.LabelNegative}
	EmotionLabels   = emotionLabels()
)

func emotionLabels() []string {
	out := make([]string, len(models.Emotions))
	for i, e := range models.Emotions {
		out[i] = string(e)
	}
	return out
}

type OpenAIOptions struct {
	APIKey string
	Model  string
	// Labels is the closed label set the model must score.
	Labels []string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// OpenAIClient is a zero-shot classifier backed by the Responses API with a
// strict JSON schema for the answer.
type OpenAIClient struct {
	Client       *openai.Client
	model        string
	labels       []string
	instructions string
}

type labelScore struct {
	Label string  `json:"label" jsonschema:"required,description=One of the allowed labels"`
	Score float64 `json:"score" jsonschema:"required,description=Confidence between 0 and 1"`
}

type classificationResponse struct {
	Predictions []labelScore `json:"predictions" jsonschema:"required,description=One entry per allowed label"`
}

var classificationSchema = generateSchema[classificationResponse]()

func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", opts.Model),
		slog.Duration("timeout", openAIRequestTimeout),
		slog.Any("labels", opts.Labels))

	return &OpenAIClient{
		Client:       &client,
		model:        opts.Model,
		labels:       opts.Labels,
		instructions: classificationInstructions(opts.Labels),
	}
}

func (o *OpenAIClient) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "TextClassification",
			Schema:      classificationSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Label scores for a news text"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(openAIMaxOutputTokens),
		Instructions:    openai.String(o.instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := o.Client.Responses.New(ctx, params)
	if err != nil {
		return nil, openAIError(err)
	}

	var out classificationResponse
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return nil, fmt.Errorf("[OpenAIClient] %w: %w", analysis.ErrMalformedOutput, err)
	}

	allowed := make(map[string]struct{}, len(o.labels))
	for _, l := range o.labels {
		allowed[strings.ToLower(l)] = struct{}{}
	}
	predictions := make([]models.Prediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(p.Label))]; !ok {
			slog.Debug("[OpenAIClient] Dropping label outside the label set", slog.String("label", p.Label))
			continue
		}
		predictions = append(predictions, models.Prediction{Label: strings.TrimSpace(p.Label), Score: p.Score})
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("[OpenAIClient] %w: no allowed labels in answer", analysis.ErrMalformedOutput)
	}
	return predictions, nil
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
			return fmt.Errorf("[OpenAIClient] %w: %w", analysis.ErrInputRejected, err)
		}
	}
	return fmt.Errorf("[OpenAIClient] %w: %w", analysis.ErrClassifierUnavailable, err)
}

func classificationInstructions(labels []string) string {
	return "You classify the tone of news text. Score every one of these labels " +
		"with a confidence between 0 and 1: " + strings.Join(labels, ", ") + ". " +
		"Use the labels exactly as written. Return only the JSON object."
}

// decodeModelJSON parses the model's answer, falling back to the first
// top-level JSON object when the text carries anything around it.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return errors.New("empty model output")
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON (len=%d): %w", end+1-start, err)
	}
	return nil
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schemaObj, err := schemaToMap(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureOpenAICompliance makes every object strict: no additional properties
// and all properties required.
func ensureOpenAICompliance(schema map[string]any) {
	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false
		if properties, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if properties, ok := schema["properties"].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		ensureOpenAICompliance(items)
	}
}
