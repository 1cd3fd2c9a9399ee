package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/fixmytext/internal/app"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/config"
	"github.com/jonathan/fixmytext/internal/server"
)

var (
	serveAddr     string
	serveHeadless bool
	serveClient   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the core and the local bridge for the UI shell",
	Long: `Starts the hotkey dispatcher, both actions and the document pipeline, and serves
the local HTTP bridge the UI shell talks to:

  POST /hotkey          raw hotkey notifications
  POST /process         run the document pipeline
  POST /process/stream  same, with server-sent progress events
  POST /paste-back      paste approved text into the source application
  GET  /events          server-sent notifications (triggers, captured text, outcomes)
  GET  /health, /metrics

Every endpoint except /health and /metrics needs a bearer token. Without
FIXMYTEXT_SERVER_SECRET a secret is generated and a token is printed at startup.
The configuration file is reloaded when it changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", false, "No desktop access: hotkey actions capture nothing and paste-back is a no-op")
	serveCmd.Flags().StringVar(&serveClient, "client", "ui-shell", "Client name for the startup token")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := newModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	clip, automation, err := desktop(cfg, logger)
	if err != nil {
		return err
	}

	core, err := app.New(app.Options{
		Config:     cfg,
		Model:      model,
		Clipboard:  clip,
		Automation: automation,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer core.Close()

	if err := core.Start(ctx); err != nil {
		return err
	}
	if configPath != "" {
		if err := core.WatchConfig(ctx, configPath); err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	jwtCfg, err := cfg.NewJWTConfig()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := server.New(server.Config{
		Addr:            addr,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		JWT:             jwtCfg,
	}, core, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if jwtCfg.Generated {
		if err := printStartupToken(cmd, srv); err != nil {
			srv.Close()
			return err
		}
	}

	return srv.Start(ctx)
}

// desktop returns the system clipboard and command automation, or in-memory
// stand-ins with --headless.
func desktop(cfg *config.Config, logger *zap.Logger) (clipboard.Clipboard, clipboard.Automation, error) {
	if serveHeadless {
		logger.Info("running headless; hotkey actions have no desktop access")
		return clipboard.NewMemory(""), &clipboard.Recorder{}, nil
	}
	clip, err := clipboard.NewSystem()
	if err != nil {
		return nil, nil, fmt.Errorf("system clipboard unavailable (try --headless): %w", err)
	}
	return clip, clipboard.NewCommandAutomation(cfg.Automation, logger), nil
}

func printStartupToken(cmd *cobra.Command, srv *server.Server) error {
	token, err := srv.JWT().GenerateToken(serveClient)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Bridge token for %q (valid until restart):\n%s\n", serveClient, token)
	return nil
}
