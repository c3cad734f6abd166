package gen

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Chain tries each configured Generator in order, returning the first
// successful result. A provider failure is logged and the next provider is
// tried; only when every provider fails does the caller see an error.
type Chain struct {
	generators []Generator
	names      []string
	logger     zerolog.Logger
}

// NewChain builds a Chain from named generators. Order matters.
func NewChain(logger zerolog.Logger) *Chain {
	return &Chain{
		logger: logger.With().Str("component", "gen_chain").Logger(),
	}
}

// Add appends a provider to the chain.
func (c *Chain) Add(name string, g Generator) *Chain {
	c.generators = append(c.generators, g)
	c.names = append(c.names, name)
	return c
}

// Len returns the number of configured providers.
func (c *Chain) Len() int { return len(c.generators) }

// Generate implements Generator.
func (c *Chain) Generate(ctx context.Context, req *Request) (*Result, error) {
	if len(c.generators) == 0 {
		return nil, fmt.Errorf("no generation providers configured")
	}

	var lastErr error
	for i, g := range c.generators {
		result, err := g.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// A rejected request is malformed for every provider; stop instead
		// of replaying it down the chain.
		var genErr *Error
		if errors.As(err, &genErr) && genErr.Type == ErrorTypeInvalidRequest && !IsRetryable(err) {
			c.logger.Warn().
				Str("provider", c.names[i]).
				Str("kind", string(req.Kind)).
				Err(err).
				Msg("Generation request rejected, not trying other providers")
			return nil, err
		}

		c.logger.Warn().
			Str("provider", c.names[i]).
			Str("kind", string(req.Kind)).
			Bool("rate_limited", IsRateLimitError(err)).
			Err(err).
			Msg("Generation provider failed, trying next")
	}
	return nil, fmt.Errorf("all generation providers failed: %w", lastErr)
}

var _ Generator = (*Chain)(nil)
