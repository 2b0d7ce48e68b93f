package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"coursecraft/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

// Client completes prompts with OpenAI structured outputs. When a request
// carries a schema the model is constrained to it in strict mode.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewClient(apiKey, model string, temperature float64, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	}

	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	} else {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", llm.ErrNoResponse
	}

	choice := completion.Choices[0]
	if choice.Message.Content == "" {
		slog.Warn("OpenAI returned empty content", "finish_reason", choice.FinishReason, "refusal", choice.Message.Refusal)
		return "", llm.ErrEmptyResponse
	}

	return choice.Message.Content, nil
}
