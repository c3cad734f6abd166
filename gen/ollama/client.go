package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/emberjournal/ember/gen"
	"github.com/ollama/ollama/api"
)

// Client implements gen.Generator against a local Ollama instance.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a new Ollama-backed generator. If host is empty, the
// client is configured from the OLLAMA_HOST environment, matching the
// ollama CLI behavior.
func NewClient(host, model string) (*Client, error) {
	if model == "" {
		model = "llama3.2:3b"
	}

	var cli *api.Client
	if host == "" {
		var err error
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		cli = api.NewClient(base, http.DefaultClient)
	}

	return &Client{client: cli, model: model}, nil
}

// Generate implements gen.Generator.
func (c *Client) Generate(ctx context.Context, req *gen.Request) (*gen.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	system := req.System
	if req.UserContext != "" {
		if system != "" {
			system += "\n\n"
		}
		system += req.UserContext
	}

	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var responseBuilder strings.Builder
	stream := false
	genReq := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  system,
		Stream:  &stream,
		Options: options,
	}
	if req.Kind == gen.KindThemes {
		genReq.Format = []byte(`"json"`)
	}

	err := c.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		responseBuilder.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return nil, &gen.Error{
			Type:        gen.ErrorTypeProvider,
			Message:     "ollama: generation failed",
			Retryable:   true,
			ProviderErr: err,
		}
	}

	content := strings.TrimSpace(responseBuilder.String())
	if content == "" {
		return nil, &gen.Error{
			Type:    gen.ErrorTypeProvider,
			Message: "ollama: received empty response from model",
		}
	}
	return &gen.Result{Content: content}, nil
}

var _ gen.Generator = (*Client)(nil)
