// Package app wires the hotkey dispatcher, both actions, the document
// pipeline and the notification bus into the running core.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jonathan/fixmytext/internal/actions"
	"github.com/jonathan/fixmytext/internal/bus"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/config"
	"github.com/jonathan/fixmytext/internal/hotkey"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/pyramid"
	"github.com/jonathan/fixmytext/internal/richtext"
)

// Action names used in outcome notifications
const (
	ActionSilentFix  = "silent_fix"
	ActionUIAssisted = "ui_assisted"
)

// Options are the collaborators needed to build an App.
type Options struct {
	Config     *config.Config
	Model      llm.Client
	Clipboard  clipboard.Clipboard
	Automation clipboard.Automation
	Logger     *zap.Logger
	// Clock replaces the wall clock of the dispatcher (tests).
	Clock hotkey.Clock
}

// App is the running core. Triggers are handled one at a time in the order
// they were dispatched; the pipeline may run concurrently with them.
type App struct {
	cfg        atomic.Pointer[config.Config]
	pipeline   atomic.Pointer[pyramid.Pipeline]
	model      llm.Client
	dispatcher *hotkey.Dispatcher
	bus        *bus.Bus
	matcher    *richtext.Matcher
	silent     *actions.SilentFix
	ui         *actions.UIAssisted
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	watcher *config.Watcher
}

// New builds the core. Nothing runs until Start.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if opts.Model == nil {
		return nil, errors.New("app: chat model client is required")
	}
	if opts.Clipboard == nil || opts.Automation == nil {
		return nil, errors.New("app: clipboard and automation are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := opts.Config
	a := &App{
		model:   opts.Model,
		bus:     bus.New(logger),
		matcher: richtext.NewMatcher(cfg.RichText),
		logger:  logger.With(zap.String("component", "app")),
	}
	a.cfg.Store(cfg)

	dispatcherOpts := []hotkey.Option{hotkey.WithLogger(logger)}
	if opts.Clock != nil {
		dispatcherOpts = append(dispatcherOpts, hotkey.WithClock(opts.Clock))
	}
	a.dispatcher = hotkey.NewDispatcher(cfg.HotkeyDispatcherConfig(), dispatcherOpts...)

	deps := actions.Deps{
		Clipboard:   opts.Clipboard,
		Automation:  opts.Automation,
		Matcher:     a.matcher,
		Converter:   richtext.NewConverter(),
		Logger:      logger,
		SettleDelay: cfg.SettleDelay(),
	}
	a.silent = actions.NewSilentFix(deps, opts.Model)
	a.ui = actions.NewUIAssisted(deps, a.bus)
	a.pipeline.Store(pyramid.New(opts.Model,
		pyramid.WithThresholds(cfg.Pipeline.Thresholds),
		pyramid.WithLogger(logger)))

	return a, nil
}

// Start begins consuming triggers. Calling it twice is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("app: already closed")
	}
	if a.running {
		return nil
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.running = true

	go a.loop(ctx, a.stopCh, a.doneCh)
	a.logger.Info("core started",
		zap.String("hotkey_id", a.Config().Hotkey.ID),
		zap.Duration("double_press_threshold", a.dispatcher.Threshold()))
	return nil
}

func (a *App) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case t := <-a.dispatcher.Events():
			a.runTrigger(ctx, t)
		}
	}
}

// runTrigger executes the action for t to completion before the loop reads
// the next trigger.
func (a *App) runTrigger(ctx context.Context, t hotkey.Trigger) {
	if err := a.bus.PublishTrigger(ctx, t); err != nil {
		a.logger.Warn("failed to publish trigger", zap.Error(err))
	}

	var (
		action  string
		outcome actions.Outcome
	)
	switch t {
	case hotkey.SilentFixTriggered:
		action, outcome = ActionSilentFix, a.silent.Execute(ctx)
	case hotkey.UIAssistedTriggered:
		action, outcome = ActionUIAssisted, a.ui.Execute(ctx)
	default:
		a.logger.Warn("unknown trigger ignored", zap.String("trigger", string(t)))
		return
	}

	if err := a.bus.PublishOutcome(ctx, action, outcome); err != nil {
		a.logger.Warn("failed to publish outcome", zap.Error(err))
	}
}

// HandleHotkey feeds one raw hotkey event to the dispatcher.
func (a *App) HandleHotkey(ev hotkey.Event) {
	a.dispatcher.Handle(ev)
}

// ProcessDocument runs the document pipeline without progress reporting.
func (a *App) ProcessDocument(ctx context.Context, req pyramid.Request) (*pyramid.Result, error) {
	return a.ProcessDocumentWithProgress(ctx, req, nil)
}

// ProcessDocumentWithProgress runs the document pipeline. An empty document
// type falls back to the configured default, and an empty source app to the
// app of the last UI-assisted capture.
func (a *App) ProcessDocumentWithProgress(ctx context.Context, req pyramid.Request, onProgress pyramid.ProgressCallback) (*pyramid.Result, error) {
	if req.DocumentType == "" {
		dt, err := pyramid.ParseDocumentType(a.Config().Pipeline.DefaultType)
		if err != nil {
			return nil, fmt.Errorf("default document type: %w", err)
		}
		req.DocumentType = dt
	}
	if req.SourceApp == "" {
		if captured, ok := a.ui.Captured(); ok {
			req.SourceApp = captured.SourceApp
		}
	}
	return a.pipeline.Load().ProcessWithProgress(ctx, req, onProgress)
}

// PasteBackToSourceApp pastes approved text into the app of the last capture.
func (a *App) PasteBackToSourceApp(ctx context.Context, text string) error {
	return a.ui.PasteBackToSourceApp(ctx, text)
}

// LastCapture returns the most recent UI-assisted capture.
func (a *App) LastCapture() (actions.CapturedText, bool) {
	return a.ui.Captured()
}

// Subscribe streams bus notifications; see bus.Bus.Subscribe.
func (a *App) Subscribe(ctx context.Context, topics ...string) (<-chan bus.Notification, error) {
	return a.bus.Subscribe(ctx, topics...)
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.cfg.Load()
}

// ApplyConfig swaps in a reloaded configuration. Hotkey, rich-text and
// threshold settings take effect immediately; provider changes need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	prev := a.cfg.Swap(cfg)

	a.dispatcher.Reconfigure(cfg.HotkeyDispatcherConfig())
	a.matcher.Update(cfg.RichText)
	if prev == nil || prev.Pipeline.Thresholds != cfg.Pipeline.Thresholds {
		a.pipeline.Store(pyramid.New(a.model,
			pyramid.WithThresholds(cfg.Pipeline.Thresholds),
			pyramid.WithLogger(a.logger)))
	}

	if prev != nil && prev.Provider.Name != cfg.Provider.Name {
		a.logger.Warn("provider change requires a restart",
			zap.String("active", prev.Provider.Name),
			zap.String("configured", cfg.Provider.Name))
	}
}

// WatchConfig reloads path on change for the lifetime of the App.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	w := config.NewWatcher(path, a.ApplyConfig, a.logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	a.mu.Lock()
	prev := a.watcher
	a.watcher = w
	a.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
	return nil
}

// Close stops the trigger loop, the dispatcher, the watcher and the bus.
// A trigger already executing finishes first.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	running, stop, done, w := a.running, a.stopCh, a.doneCh, a.watcher
	a.running = false
	a.mu.Unlock()

	a.dispatcher.Close()
	if running {
		close(stop)
		<-done
	}
	if w != nil {
		w.Stop()
	}
	return a.bus.Close()
}
