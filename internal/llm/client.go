// Package llm wraps the language-model provider behind a small completion
// port. The provider is an opaque text generator; every failure mode maps to
// a single upstream_unavailable outcome.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	derrors "promptschola/pkg/domainerrors"
)

// systemPrompt pins the tutor persona for every completion.
const systemPrompt = "You are a friendly, rigorous physics tutor for final high school and first-year university students."

const (
	defaultTemperature = 0.4
	defaultMaxTokens   = 600
)

// Completer generates lesson content for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client talks to a chat-completions API (DeepSeek wire shape).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (tests, custom timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRateLimit caps outbound completions per second so one deployment
// cannot exhaust the provider quota.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient constructs a completion client.
func NewClient(baseURL, apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt with the tutor system instructions and returns
// the generated text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", derrors.Wrap(err, derrors.CodeUpstream, "completion rate limit wait interrupted")
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "encode completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "build completion request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeUpstream, "language model unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "language model error response",
			"status", resp.StatusCode,
			"body", string(detail),
		)
		return "", derrors.New(derrors.CodeUpstream,
			fmt.Sprintf("language model returned status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", derrors.Wrap(err, derrors.CodeUpstream, "decode completion response")
	}
	if len(parsed.Choices) == 0 {
		return "", derrors.New(derrors.CodeUpstream, "completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
