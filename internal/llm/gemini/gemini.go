// Package gemini calls the Google Gemini generateContent REST endpoint.
package gemini

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
	"unicode/utf8"

	"github.com/vbonduro/ingredia/internal/llm"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel    = "gemini-1.5-flash"
	defaultTimeout  = 120 * time.Second
)

type request struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func New(cfg llm.ProviderConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Describe(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	return c.generate(ctx, llm.DescribeMaxTokens, []part{
		{Text: llm.DescribePrompt},
		{InlineData: &inlineData{
			MimeType: llm.NormaliseMIME(mimeType),
			Data:     base64.StdEncoding.EncodeToString(imageData),
		}},
	})
}

func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, llm.AnswerMaxTokens, []part{{Text: prompt}})
}

func (c *Client) generate(ctx context.Context, maxTokens int, parts []part) (string, error) {
	payload, err := json.Marshal(request{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{MaxOutputTokens: maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var respBody response
	if err := json.Unmarshal(body, &respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if respBody.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", respBody.Error.Code, respBody.Error.Message)
	}
	if respBody.PromptFeedback != nil && respBody.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", respBody.PromptFeedback.BlockReason)
	}
	if len(respBody.Candidates) == 0 {
		return "", llm.ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range respBody.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return llm.Text(text.String())
}

// truncate cuts s to at most maxLen bytes without splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
