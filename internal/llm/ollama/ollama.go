// Package ollama calls a local Ollama server's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/ingredia/internal/llm"
)

const (
	defaultHost    = "http://localhost:11434"
	defaultModel   = "llava"
	defaultTimeout = 300 * time.Second
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type Client struct {
	host   string
	model  string
	client *http.Client
}

func New(cfg llm.ProviderConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHost
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		host:   strings.TrimRight(cfg.BaseURL, "/"),
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Describe(ctx context.Context, r io.Reader, _ string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	return c.generate(ctx, generateRequest{
		Model:   c.model,
		Prompt:  llm.DescribePrompt,
		Images:  []string{base64.StdEncoding.EncodeToString(imageData)},
		Options: map[string]any{"num_predict": llm.DescribeMaxTokens},
	})
}

func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: map[string]any{"num_predict": llm.AnswerMaxTokens},
	})
}

func (c *Client) generate(ctx context.Context, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return llm.Text(respBody.Response)
}
