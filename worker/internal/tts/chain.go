package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/bharathbs2003/cinehack/shared/config"

	"go.uber.org/zap"
)

// Chain tries an ordered list of synthesis providers until one succeeds.
// The primary endpoint is always first; configured fallbacks follow in
// their listed order.
type Chain struct {
	providers []Synthesizer
	logger    *zap.Logger
}

// NewChain builds the provider chain from configuration.
func NewChain(cfg config.SynthesisConfig, logger *zap.Logger) *Chain {
	providers := []Synthesizer{
		NewProvider("primary", cfg.URL, cfg.APIKey, logger),
	}
	for i, url := range cfg.FallbackURLs {
		providers = append(providers, NewProvider(fmt.Sprintf("fallback-%d", i+1), url, cfg.APIKey, logger))
	}

	return &Chain{providers: providers, logger: logger}
}

// NewChainFromProviders builds a chain over explicit providers.
func NewChainFromProviders(providers []Synthesizer, logger *zap.Logger) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Synthesize walks the chain in order, returning the first successful
// result. The error reports the last provider failure when all fail.
func (c *Chain) Synthesize(ctx context.Context, req Request) (io.ReadCloser, error) {
	var lastErr error

	for _, p := range c.providers {
		audio, err := p.Synthesize(ctx, req)
		if err == nil {
			return audio, nil
		}

		lastErr = err
		c.logger.Warn("Synthesis provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("voice_id", req.VoiceID),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("all synthesis providers failed: %w", lastErr)
}
