package clipboard

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CommandSet lists external commands used for automation, e.g.
// ["xdotool", "key", "ctrl+c"]. An empty command is skipped.
type CommandSet struct {
	Copy       []string `yaml:"copy"`
	Paste      []string `yaml:"paste"`
	FocusedApp []string `yaml:"focused_app"`
	// Activate runs before Paste when a target hint is given; the
	// literal {target} in any argument is replaced by the hint.
	Activate []string `yaml:"activate"`
}

// CommandAutomation drives the desktop by running external tools.
type CommandAutomation struct {
	cmds   CommandSet
	logger *zap.Logger
}

// NewCommandAutomation creates an automation backed by cmds.
func NewCommandAutomation(cmds CommandSet, logger *zap.Logger) *CommandAutomation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandAutomation{cmds: cmds, logger: logger.With(zap.String("component", "automation"))}
}

func (a *CommandAutomation) Copy(ctx context.Context) error {
	_, err := a.run(ctx, "copy", a.cmds.Copy, "")
	return err
}

func (a *CommandAutomation) Paste(ctx context.Context, targetHint string) error {
	if targetHint != "" && len(a.cmds.Activate) > 0 {
		// Refocus is best effort; paste into whatever has focus otherwise
		if _, err := a.run(ctx, "activate", a.cmds.Activate, targetHint); err != nil {
			a.logger.Warn("failed to refocus target", zap.String("target", targetHint), zap.Error(err))
		}
	}
	_, err := a.run(ctx, "paste", a.cmds.Paste, "")
	return err
}

func (a *CommandAutomation) FocusedApp(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "focused_app", a.cmds.FocusedApp, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (a *CommandAutomation) run(ctx context.Context, op string, argv []string, target string) (string, error) {
	if len(argv) == 0 {
		return "", nil
	}
	args := make([]string, len(argv)-1)
	for i, arg := range argv[1:] {
		args[i] = strings.ReplaceAll(arg, "{target}", target)
	}

	out, err := exec.CommandContext(ctx, argv[0], args...).Output()
	if err != nil {
		return "", &AutomationError{Op: op, Message: "command " + argv[0] + " failed", Cause: err}
	}
	return string(out), nil
}

// Recorder is an Automation that performs nothing and remembers every call.
// Hosts that drive keystrokes themselves (the local bridge) and tests use it.
type Recorder struct {
	mu sync.Mutex

	App      string
	CopyErr  error
	PasteErr error

	Copies int
	Pastes []string
}

func (r *Recorder) Copy(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Copies++
	if r.CopyErr != nil {
		return &AutomationError{Op: "copy", Message: "copy failed", Cause: r.CopyErr}
	}
	return nil
}

func (r *Recorder) Paste(_ context.Context, targetHint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pastes = append(r.Pastes, targetHint)
	if r.PasteErr != nil {
		return &AutomationError{Op: "paste", Message: "paste failed", Cause: r.PasteErr}
	}
	return nil
}

func (r *Recorder) FocusedApp(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.App, nil
}

// PasteCount returns the number of Paste calls.
func (r *Recorder) PasteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Pastes)
}
