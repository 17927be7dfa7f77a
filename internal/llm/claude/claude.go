// Package claude calls the Anthropic Messages API through go-anthropic.
package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/ingredia/internal/llm"
)

const (
	defaultModel   = "claude-sonnet-4-5"
	defaultTimeout = 120 * time.Second
)

type Client struct {
	client *anthropic.Client
	model  string
}

func New(cfg llm.ProviderConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
	}
}

func (c *Client) Name() string { return "claude" }

func (c *Client) Describe(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	source := anthropic.NewMessageContentSource(
		anthropic.MessagesContentSourceTypeBase64,
		llm.NormaliseMIME(mimeType),
		base64.StdEncoding.EncodeToString(imageData),
	)

	return c.send(ctx, llm.DescribeMaxTokens, []anthropic.MessageContent{
		anthropic.NewImageMessageContent(source),
		anthropic.NewTextMessageContent(llm.DescribePrompt),
	})
}

func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, llm.AnswerMaxTokens, []anthropic.MessageContent{
		anthropic.NewTextMessageContent(prompt),
	})
}

func (c *Client) send(ctx context.Context, maxTokens int, contents []anthropic.MessageContent) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: contents,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}
	return llm.Text(resp.GetFirstContentText())
}
