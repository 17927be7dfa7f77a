// Package openai calls the Chat Completions API of OpenAI or any
// OpenAI-compatible endpoint.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vbonduro/ingredia/internal/llm"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	client openaisdk.Client
	model  string
}

func New(cfg llm.ProviderConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = string(openaisdk.ChatModelGPT4o)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openaisdk.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Describe(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", llm.NormaliseMIME(mimeType), base64.StdEncoding.EncodeToString(imageData))
	msg := openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
		openaisdk.TextContentPart(llm.DescribePrompt),
		openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})
	return c.complete(ctx, llm.DescribeMaxTokens, msg)
}

func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, llm.AnswerMaxTokens, openaisdk.UserMessage(prompt))
}

func (c *Client) complete(ctx context.Context, maxTokens int, msg openaisdk.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:     openaisdk.ChatModel(c.model),
		Messages:  []openaisdk.ChatCompletionMessageParamUnion{msg},
		MaxTokens: openaisdk.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	return llm.Text(resp.Choices[0].Message.Content)
}
