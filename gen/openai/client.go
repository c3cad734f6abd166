package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/emberjournal/ember/gen"
	openai "github.com/sashabaranov/go-openai"
)

// Client implements gen.Generator against the OpenAI chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI-backed generator.
// If baseURL is empty, the default OpenAI API endpoint is used.
func NewClient(apiKey, baseURL, model, organization string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate implements gen.Generator.
func (c *Client) Generate(ctx context.Context, req *gen.Request) (*gen.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := buildSystem(req); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.Kind == gen.KindThemes {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertError(err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, &gen.Error{
			Type:    gen.ErrorTypeProvider,
			Message: "openai: no choices in response",
		}
	}

	return &gen.Result{Content: chatResp.Choices[0].Message.Content}, nil
}

func buildSystem(req *gen.Request) string {
	if req.UserContext == "" {
		return req.System
	}
	if req.System == "" {
		return req.UserContext
	}
	return req.System + "\n\n" + req.UserContext
}

// convertError maps go-openai errors onto the provider-neutral gen.Error.
func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		genErr := &gen.Error{
			Message:     fmt.Sprintf("openai: %s", apiErr.Message),
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			genErr.Type = gen.ErrorTypeRateLimit
			genErr.Retryable = true
		case apiErr.HTTPStatusCode >= 500:
			genErr.Type = gen.ErrorTypeProvider
			genErr.Retryable = true
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			// Credential trouble is provider-specific; another provider may
			// still serve the request.
			genErr.Type = gen.ErrorTypeProvider
		default:
			genErr.Type = gen.ErrorTypeInvalidRequest
		}
		return genErr
	}

	if strings.Contains(err.Error(), "context deadline exceeded") {
		return &gen.Error{
			Type:        gen.ErrorTypeTimeout,
			Message:     "openai: request timed out",
			Retryable:   true,
			ProviderErr: err,
		}
	}
	return &gen.Error{
		Type:        gen.ErrorTypeNetwork,
		Message:     "openai: request failed",
		Retryable:   true,
		ProviderErr: err,
	}
}

var _ gen.Generator = (*Client)(nil)
