// Package anthropic implements domain.TextEnricher with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const temperature = 0.3

// Options configures an Enricher.
type Options struct {
	APIKey    string
	BaseURL   string // empty uses the SDK default
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// Enricher sends one instruction/input pair per call and returns the
// concatenated text of the reply.
type Enricher struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewEnricher creates an Enricher. SDK-level retries are disabled so the
// caller's fallback runs promptly.
func NewEnricher(opts Options) *Enricher {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Enricher{
		client:    sdk.NewClient(clientOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
	}
}

// Enrich implements domain.TextEnricher.
func (e *Enricher) Enrich(ctx context.Context, instructions, input string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	msg, err := e.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(e.model),
		MaxTokens:   e.maxTokens,
		System:      []sdk.TextBlockParam{{Text: instructions}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(input))},
		Temperature: sdk.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: response has no text content")
	}
	if msg.StopReason == sdk.StopReasonMaxTokens {
		return "", fmt.Errorf("anthropic: response truncated at %d tokens", e.maxTokens)
	}
	return b.String(), nil
}
