package ai

import (
	"bytes"
	"context"
	"crypto-oracle-bot/internal/types"
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL   = "https://api.fireworks.ai/inference/v1/chat/completions"
	DefaultModel = "accounts/sentientfoundation-serverless/models/dobby-mini-unhinged-plus-llama-3-1-8b"

	systemPrompt = "You are Sentient Crypto Oracle, an AI that provides insightful cryptocurrency market analysis. " +
		"Keep responses concise, professional, and informative. Focus on market trends, technical analysis, and practical insights."

	// MarketContext is the context line sent with the daily market summary
	MarketContext = "Daily crypto market summary"

	maxResponseSize = 1 << 20
)

var (
	// ErrUnavailable means the service is not configured or refuses our credentials
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrRateLimited means the service asked us to slow down
	ErrRateLimited = errors.New("ai service rate limited")
	// ErrUnreachable means the request did not produce an answer
	ErrUnreachable = errors.New("ai service unreachable")
)

// Client talks to an OpenAI compatible chat completions endpoint
type Client struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client, empty url or model fall back to the defaults
func NewClient(apiKey, url, model string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for commentary on prompt
func (c *Client) Summarize(ctx context.Context, prompt, background string) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", errors.Wrap(ErrUnavailable, "api key not configured")
	}

	content := prompt
	if background != "" {
		content = fmt.Sprintf("%s\n\nContext: %s", prompt, background)
	}
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		MaxTokens:   300,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrUnreachable, "%v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", errors.Wrapf(ErrUnreachable, "could not read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return "", errors.Wrapf(ErrUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", errors.Wrapf(ErrRateLimited, "status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		log.Debugf("ai request failed status=%d body=%s", resp.StatusCode, string(raw))
		return "", errors.Wrapf(ErrUnreachable, "status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrapf(ErrUnreachable, "invalid response: %v", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.Wrap(ErrUnreachable, "empty response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// MarketPrompt builds the summary request for the given movers
func MarketPrompt(tickers []types.Ticker) string {
	parts := make([]string, 0, len(tickers))
	for _, t := range tickers {
		change := "n/a"
		if t.Quote.Change24h.Valid {
			c := t.Quote.Change24h.Decimal
			sign := ""
			if !c.IsNegative() {
				sign = "+"
			}
			change = sign + c.StringFixed(2) + "%"
		}
		parts = append(parts, fmt.Sprintf("%s: $%s (%s)", strings.ToUpper(t.Symbol), t.Quote.Price.String(), change))
	}
	return fmt.Sprintf("Provide a brief market summary for these top cryptocurrencies: %s. Include overall market sentiment and key insights.",
		strings.Join(parts, ", "))
}
