package oracle

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
)

// AnthropicGenerator implements Generator on Anthropic's messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicGenerator creates a generator for the given model. When apiKey
// is empty, ANTHROPIC_API_KEY is consulted.
func NewAnthropicGenerator(apiKey string, model anthropic.Model) (*AnthropicGenerator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidConfiguration, "anthropic API key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicGenerator{
		client: &client,
		model:  model,
	}, nil
}

// Generate implements the Generator interface.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error) {
	logger := logging.GetLogger()
	opts := NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	})

	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
			if apiErr.StatusCode == http.StatusTooManyRequests {
				return "", errors.Wrap(err, errors.OracleRateLimited, "anthropic rate limit exceeded")
			}
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", errors.Wrap(err, errors.OracleTimeout, "anthropic request timed out")
		}
		return "", errors.WithFields(
			errors.Wrap(err, errors.OracleTransport, "anthropic request failed"),
			errors.Fields{
				"model":      string(a.model),
				"max_tokens": opts.MaxTokens,
			})
	}

	if message == nil || len(message.Content) == 0 {
		return "", errors.New(errors.OracleMalformedResponse, "received empty content from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}
	if responseText == "" {
		return "", errors.New(errors.OracleMalformedResponse, "received non-text content from Anthropic API")
	}

	logger.Debug(ctx, "Anthropic response: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return responseText, nil
}

// ProviderName implements the Generator interface.
func (a *AnthropicGenerator) ProviderName() string {
	return "anthropic"
}

// ModelID implements the Generator interface.
func (a *AnthropicGenerator) ModelID() string {
	return string(a.model)
}
