package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
)

const anthropicVersion = "2023-06-01"

var (
	// ErrMissingAPIKey is returned when no model API key is configured
	ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set")
	// ErrEmptyResponse is returned when the model answers without a text block
	ErrEmptyResponse = errors.New("model response contained no text")
)

// Image is one attachment sent to the vision model
type Image struct {
	MediaType string
	Data      []byte
}

// Model is a vision-capable language model: ordered images plus an
// instruction in, free text out.
type Model interface {
	Complete(ctx context.Context, images []Image, prompt string, maxTokens int) (string, error)
}

// AnthropicClient calls the Anthropic Messages API. It is safe for concurrent
// use; calls are paced by a shared rate limiter.
type AnthropicClient struct {
	http    *resty.Client
	model   string
	limiter *rate.Limiter
	logger  types.Logger
	metrics *monitoring.Metrics
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a model client from configuration. metrics may be nil.
func NewAnthropicClient(config *types.Config, logger types.Logger, metrics *monitoring.Metrics) (*AnthropicClient, error) {
	if config.ModelAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := resty.New().
		SetBaseURL(config.ModelBaseURL).
		SetTimeout(config.ModelTimeout).
		SetHeader("x-api-key", config.ModelAPIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("content-type", "application/json")

	limit := rate.Inf
	if config.ModelRPS > 0 {
		limit = rate.Limit(config.ModelRPS)
	}

	return &AnthropicClient{
		http:    client,
		model:   config.VisionModel,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Complete sends the images followed by the prompt as one user message and
// returns the first text block of the reply
func (c *AnthropicClient) Complete(ctx context.Context, images []Image, prompt string, maxTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	blocks := make([]contentBlock, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: img.MediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: prompt})

	req := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: blocks}},
	}

	start := time.Now()
	text, err := c.send(ctx, req)
	c.metrics.ObserveModelRequest(time.Since(start), err)
	return text, err
}

func (c *AnthropicClient) send(ctx context.Context, req messageRequest) (string, error) {
	var result messageResponse
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode(), msg)
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
