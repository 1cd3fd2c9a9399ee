package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/fixmytext/internal/config"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/logging"
)

// loadRuntime reads the configuration and builds the logger.
// --verbose lowers an info level to debug.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose && (cfg.Logging.Level == "" || cfg.Logging.Level == "info") {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// newModel builds the provider client with request metrics and, unless the
// TTL is zero, a response cache.
func newModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	lc, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", lc.Provider, err)
	}

	var model llm.Client = llm.NewInstrumentedClient(client, lc.Provider, logger)
	if ttl := cfg.CacheTTL(); ttl > 0 {
		model = llm.NewCachingClient(model, ttl)
	}
	logger.Debug("chat model ready",
		zap.String("provider", string(lc.Provider)),
		zap.String("standard_model", lc.GetModel(llm.TierStandard)))
	return model, nil
}

// readInput returns the joined args, the content of path, or stdin when
// both are empty or path is "-".
func readInput(stdin io.Reader, args []string, path string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	text := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no input text")
	}
	return text, nil
}
