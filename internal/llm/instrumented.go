package llm

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/fixmytext/internal/metrics"
	"go.uber.org/zap"
)

// InstrumentedClient records latency and outcome of every call.
type InstrumentedClient struct {
	next     Client
	provider Provider
	logger   *zap.Logger
}

// NewInstrumentedClient wraps next with metrics and debug logging.
func NewInstrumentedClient(next Client, provider Provider, logger *zap.Logger) *InstrumentedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedClient{
		next:     next,
		provider: provider,
		logger:   logger.With(zap.String("component", "llm"), zap.String("provider", string(provider))),
	}
}

// Generate delegates and records the call
func (c *InstrumentedClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, systemPrompt, text, tier)
	c.record(tier, start, len(text), len(out), err)
	return out, err
}

// GenerateJSON delegates and records the call
func (c *InstrumentedClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	start := time.Now()
	out, err := c.next.GenerateJSON(ctx, systemPrompt, text, tier)
	c.record(tier, start, len(text), len(out), err)
	return out, err
}

func (c *InstrumentedClient) record(tier ModelTier, start time.Time, inLen, outLen int, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = string(KindNetwork)
		var pe *ProviderError
		if errors.As(err, &pe) {
			status = string(pe.Kind)
		}
	}
	metrics.RecordLLMRequest(string(c.provider), string(tier), status, elapsed)

	fields := []zap.Field{
		zap.String("tier", string(tier)),
		zap.String("model", c.next.Model(tier)),
		zap.Duration("elapsed", elapsed),
		zap.Int("input_len", inLen),
		zap.Int("output_len", outLen),
	}
	if err != nil {
		c.logger.Warn("model call failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("model call completed", fields...)
}

// Model delegates to the wrapped client
func (c *InstrumentedClient) Model(tier ModelTier) string {
	return c.next.Model(tier)
}

// Close closes the wrapped client
func (c *InstrumentedClient) Close() error {
	return c.next.Close()
}
