// Package summarizer turns campaign figures into a short narrative via
// an external model. The service treats it as an opaque text source.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Summarizer produces a one-paragraph performance summary.
type Summarizer interface {
	Summarize(ctx context.Context, adSpend, totalRevenue, roi, profit float64) (string, error)
}

const systemPrompt = "You are a marketing performance analyst."

// Client implements Summarizer over the Anthropic Messages API.
type Client struct {
	client sdk.Client
	model  string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *Client) Summarize(ctx context.Context, adSpend, totalRevenue, roi, profit float64) (string, error) {
	prompt := fmt.Sprintf(
		"You are a marketing analytics assistant. Write a professional one-paragraph summary "+
			"explaining campaign performance based on these metrics:\n"+
			"- Ad Spend: $%.2f\n"+
			"- Revenue: $%.2f\n"+
			"- ROI: %.2fx\n"+
			"- Profit: $%.2f\n"+
			"Use a confident, client-friendly tone with clear business insight.",
		adSpend, totalRevenue, roi, profit)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   250,
		Temperature: sdk.Float(0.7),
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", eris.Wrap(err, "summarizer: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		sb.WriteString(block.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
