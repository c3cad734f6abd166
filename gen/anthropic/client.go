package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emberjournal/ember/gen"
	"github.com/rs/zerolog"
)

const endpoint = "https://api.anthropic.com/v1/messages"

// Client implements gen.Generator against the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient returns a configured Anthropic generator.
func NewClient(model, apiKey string, maxTokens int, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "anthropic_generator").Logger(),
	}, nil
}

// Generate implements gen.Generator.
func (c *Client) Generate(ctx context.Context, req *gen.Request) (*gen.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	system := req.System
	if req.UserContext != "" {
		if system != "" {
			system += "\n\n"
		}
		system += req.UserContext
	}

	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": req.Prompt,
			},
		},
	}
	if system != "" {
		payload["system"] = system
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	content, err := c.call(ctx, body)
	if err != nil {
		return nil, err
	}
	return &gen.Result{Content: content}, nil
}

// call performs the HTTP request with exponential backoff for rate limits
// and transient server errors.
func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	var content string

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.Multiplier = 2.0
	eb.MaxInterval = 60 * time.Second
	eb.MaxElapsedTime = 5 * time.Minute
	eb.RandomizationFactor = 0.2
	eb.Reset()

	b := backoff.WithMaxRetries(eb, 5)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("anthropic: create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("anthropic: request failed: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck // Body close error can be ignored

		if resp.StatusCode >= 400 {
			var apiErr map[string]interface{}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)

			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter := retryAfterFromResponse(resp)
				c.logger.Warn().Dur("retryAfter", retryAfter).Msg("Anthropic rate limit encountered, retrying")
				return fmt.Errorf("anthropic: rate limit: %s: %v", resp.Status, apiErr)
			}

			// Don't retry other 4xx errors. Credential trouble stays typed
			// as a provider error so callers can fall back elsewhere.
			if resp.StatusCode < 500 {
				errType := gen.ErrorTypeInvalidRequest
				if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
					errType = gen.ErrorTypeProvider
				}
				return backoff.Permanent(&gen.Error{
					Type:       errType,
					Message:    fmt.Sprintf("anthropic: API error %s: %v", resp.Status, apiErr),
					StatusCode: resp.StatusCode,
				})
			}

			c.logger.Warn().Str("status", resp.Status).Msg("Anthropic server error, retrying")
			return fmt.Errorf("anthropic: server error %s: %v", resp.Status, apiErr)
		}

		var msgResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
			return fmt.Errorf("anthropic: decode response: %w", err)
		}
		if len(msgResp.Content) == 0 {
			return fmt.Errorf("anthropic: empty content in response")
		}

		content = msgResp.Content[0].Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func retryAfterFromResponse(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 60 * time.Second
}

var _ gen.Generator = (*Client)(nil)
