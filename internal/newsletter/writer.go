package newsletter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	digestMaxTokens   = 1000
	digestTemperature = 0.7
)

// Writer turns a prompt into copy.
type Writer interface {
	Write(ctx context.Context, prompt string) (string, error)
}

// AnthropicWriter writes digest copy with the Anthropic Messages API.
type AnthropicWriter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicWriter uses httpClient for transport so outbound calls share
// the service's timeouts and User-Agent.
func NewAnthropicWriter(apiKey, model string, httpClient *http.Client) *AnthropicWriter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicWriter{client: anthropic.NewClient(opts...), model: model}
}

func (w *AnthropicWriter) Write(ctx context.Context, prompt string) (string, error) {
	msg, err := w.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(w.model),
		MaxTokens:   digestMaxTokens,
		Temperature: anthropic.Float(digestTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
