package groq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conneroisu/groq-go"

	"coursecraft/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

// Client completes prompts through Groq in json_object mode. Groq does not
// enforce a schema, so callers must validate the decoded result.
type Client struct {
	client      *groq.Client
	model       groq.ChatModel
	temperature float32
}

func NewClient(apiKey, model string, temperature float64) (*Client, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client:      client,
		model:       groq.ChatModel(model),
		temperature: float32(temperature),
	}, nil
}

func (c *Client) Name() string { return "groq" }

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: req.System},
			{Role: groq.RoleUser, Content: req.User},
		},
		Temperature:    c.temperature,
		ResponseFormat: &groq.ChatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrNoResponse
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	slog.Debug("Groq completion", "schema", req.SchemaName, "bytes", len(content))
	return content, nil
}
