package executor

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicExecutor runs task commands as prompts against the
// Anthropic API instead of spawning a CLI subprocess. Useful on hosts
// where the CLI binary is unavailable.
type AnthropicExecutor struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicConfig holds configuration for the Anthropic executor.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string // Optional custom endpoint
	Model     string
	MaxTokens int64
}

// NewAnthropicExecutor creates an API-backed executor.
func NewAnthropicExecutor(cfg AnthropicConfig) (*AnthropicExecutor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for anthropic")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for anthropic")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicExecutor{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name identifies the executor.
func (e *AnthropicExecutor) Name() string {
	return "anthropic:" + e.model
}

// Execute sends the command as a single user message and returns the
// concatenated text blocks of the response.
func (e *AnthropicExecutor) Execute(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", ErrEmptyCommand
	}

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(command)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var output string
	for _, block := range resp.Content {
		if block.Type == "text" {
			output += block.Text
		}
	}
	return output, nil
}
