// Package claude implements the llm.Provider interface against the Claude
// messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/argus/internal/llm"
)

// Client calls the Claude API for single-turn assessment generation.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude client. A missing API key or model is a configuration
// error surfaced at construction, not at first call.
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("claude: API key is required")
	}
	if model == "" {
		return nil, errors.New("claude: model is required")
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Generate sends one prompt and returns the concatenated text content of the
// response.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
