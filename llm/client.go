// Package llm adapts a langchaingo model to the single-prompt Ask contract
// the preference extractor needs.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/imkonsowa/cafes-rag/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

type Client struct {
	model llms.Model
	opts  []llms.CallOption
}

func NewClient(model llms.Model, opts ...llms.CallOption) *Client {
	if len(opts) == 0 {
		opts = []llms.CallOption{llms.WithTemperature(0)}
	}

	return &Client{
		model: model,
		opts:  opts,
	}
}

// New builds the model named by cfg.Provider.
func New(cfg config.LLM) (*Client, error) {
	var (
		model llms.Model
		err   error
	)

	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.Address()),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}

	return NewClient(model), nil
}

func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	content, err := c.model.GenerateContent(
		ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		c.opts...,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(content.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return content.Choices[0].Content, nil
}
