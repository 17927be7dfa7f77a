// Package llm defines the two capabilities the assistant needs from a hosted
// model: describing a product image and answering a text prompt.
package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// DescribePrompt is the shared instruction sent with every product image.
const DescribePrompt = `Analyze the image of a product (cosmetics, food items, or medicine) and provide the following information:
Briefly describe the product based on what you see and ask the user what they want you to do.
Do not make any health claims or recommendations in this analysis.`

const (
	DescribeMaxTokens = 1024
	// The answer template asks for under 300 words; 2048 tokens leaves room
	// for models that overshoot.
	AnswerMaxTokens = 2048
)

// ErrEmptyResponse is returned when a model replies with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

type Describer interface {
	Describe(ctx context.Context, r io.Reader, mimeType string) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// Provider is a hosted model backend offering both capabilities.
type Provider interface {
	Describer
	Answerer
	Name() string
}

// ProviderConfig holds the settings shared by every backend.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Text trims a model reply and rejects it if nothing is left.
func Text(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// NormaliseMIME maps an accepted upload type to the value hosted APIs expect.
// Anything that is not PNG is sent as JPEG.
func NormaliseMIME(mimeType string) string {
	if mimeType == "image/png" {
		return mimeType
	}
	return "image/jpeg"
}
