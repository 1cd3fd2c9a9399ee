package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/fixmytext/internal/actions"
	"github.com/jonathan/fixmytext/internal/bus"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/config"
	"github.com/jonathan/fixmytext/internal/hotkey"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/prompts"
	"github.com/jonathan/fixmytext/internal/pyramid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeModel corrects text for the silent fix prompt and answers every
// pipeline stage with the same unstructured reply.
type fakeModel struct {
	mu       sync.Mutex
	systems  []string
	reply    string
	fixed    string
	blocking chan struct{}
}

func (m *fakeModel) Generate(ctx context.Context, system, text string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.systems = append(m.systems, system)
	block := m.blocking
	m.mu.Unlock()

	if strings.HasPrefix(system, prompts.MustGet(prompts.SilentFix, "correct-text")) {
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return m.fixed, nil
	}
	return m.reply, nil
}

func (m *fakeModel) GenerateJSON(ctx context.Context, system, text string, tier llm.ModelTier) (string, error) {
	return m.Generate(ctx, system, text, tier)
}

func (m *fakeModel) Model(llm.ModelTier) string { return "fake" }
func (m *fakeModel) Close() error               { return nil }

func (m *fakeModel) firstSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.systems) == 0 {
		return ""
	}
	return m.systems[0]
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Hotkey.DoublePressMS = 50
	cfg.Hotkey.SettleDelayMS = 0
	cfg.RichText.Enabled = true
	cfg.RichText.AppPatterns = []string{"Outlook"}
	cfg.Pipeline.DefaultType = "memo"
	return cfg
}

type fixture struct {
	app   *App
	model *fakeModel
	clip  *clipboard.Memory
	auto  *clipboard.Recorder
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		model: &fakeModel{fixed: "The text is fixed.", reply: "Subject: Hello\n\nBody text here."},
		clip:  clipboard.NewMemory("teh text is fixd"),
		auto:  &clipboard.Recorder{App: "Outlook"},
	}
	a, err := New(Options{Config: cfg, Model: f.model, Clipboard: f.clip, Automation: f.auto})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	f.app = a
	return f
}

func press(a *App, at time.Time) {
	a.HandleHotkey(hotkey.Event{Transition: hotkey.Pressed, Timestamp: at})
}

func next(t *testing.T, ch <-chan bus.Notification, topic string) bus.Notification {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "subscription closed")
			if n.Topic == topic {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", topic)
		}
	}
}

func outcomeOf(t *testing.T, n bus.Notification) bus.OutcomeMessage {
	t.Helper()
	var msg bus.OutcomeMessage
	require.NoError(t, json.Unmarshal(n.Payload, &msg))
	return msg
}

func TestNew_RequiresCollaborators(t *testing.T) {
	cfg := testConfig()
	model := &fakeModel{}
	clip := clipboard.NewMemory("")
	auto := &clipboard.Recorder{}

	tests := []struct {
		name string
		opts Options
	}{
		{"no config", Options{Model: model, Clipboard: clip, Automation: auto}},
		{"no model", Options{Config: cfg, Clipboard: clip, Automation: auto}},
		{"no clipboard", Options{Config: cfg, Model: model, Automation: auto}},
		{"no automation", Options{Config: cfg, Model: model, Clipboard: clip}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestSinglePress_RunsSilentFix(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.app.Subscribe(ctx, bus.TopicTriggers, bus.TopicOutcomes)
	require.NoError(t, err)
	require.NoError(t, f.app.Start(ctx))

	press(f.app, time.Now())

	trig := next(t, ch, bus.TopicTriggers)
	var tm bus.TriggerMessage
	require.NoError(t, json.Unmarshal(trig.Payload, &tm))
	assert.Equal(t, hotkey.SilentFixTriggered, tm.Trigger)

	out := outcomeOf(t, next(t, ch, bus.TopicOutcomes))
	assert.Equal(t, ActionSilentFix, out.Action)
	assert.Equal(t, actions.OutcomeApplied, out.Outcome)

	text, html, writes := f.clip.Snapshot()
	assert.Equal(t, "The text is fixed.", text)
	assert.NotEmpty(t, html, "Outlook accepts rich paste")
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, f.auto.PasteCount())
}

func TestDoublePress_CapturesForUI(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.app.Subscribe(ctx, bus.TopicTextReady, bus.TopicOutcomes)
	require.NoError(t, err)
	require.NoError(t, f.app.Start(ctx))

	now := time.Now()
	press(f.app, now)
	press(f.app, now.Add(20*time.Millisecond))

	var ready actions.TextReady
	require.NoError(t, json.Unmarshal(next(t, ch, bus.TopicTextReady).Payload, &ready))
	assert.Equal(t, "teh text is fixd", ready.Text)
	assert.Equal(t, "Outlook", ready.SourceApp)

	out := outcomeOf(t, next(t, ch, bus.TopicOutcomes))
	assert.Equal(t, ActionUIAssisted, out.Action)
	assert.Equal(t, actions.OutcomeCaptured, out.Outcome)

	captured, ok := f.app.LastCapture()
	require.True(t, ok)
	assert.Equal(t, ready.CaptureID, captured.ID)

	_, _, writes := f.clip.Snapshot()
	assert.Zero(t, writes, "UI-assisted capture never writes the clipboard")
	assert.Zero(t, f.auto.PasteCount())
}

func TestTriggers_RunOneAtATime(t *testing.T) {
	f := newFixture(t, testConfig())
	f.model.blocking = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := f.app.Subscribe(ctx, bus.TopicTriggers, bus.TopicOutcomes)
	require.NoError(t, err)
	require.NoError(t, f.app.Start(ctx))

	// A slow silent fix followed by a double press
	press(f.app, time.Now())
	next(t, ch, bus.TopicTriggers)
	time.Sleep(100 * time.Millisecond)
	now := time.Now()
	press(f.app, now)
	press(f.app, now.Add(10*time.Millisecond))

	select {
	case n := <-ch:
		t.Fatalf("second gesture started before the first finished: %s", n.Topic)
	case <-time.After(150 * time.Millisecond):
	}

	close(f.model.blocking)
	first := outcomeOf(t, next(t, ch, bus.TopicOutcomes))
	assert.Equal(t, ActionSilentFix, first.Action)
	second := outcomeOf(t, next(t, ch, bus.TopicOutcomes))
	assert.Equal(t, ActionUIAssisted, second.Action)
}

func TestProcessDocument_UsesDefaultsAndCapturedApp(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.app.Subscribe(ctx, bus.TopicOutcomes)
	require.NoError(t, err)
	require.NoError(t, f.app.Start(ctx))

	now := time.Now()
	press(f.app, now)
	press(f.app, now.Add(10*time.Millisecond))
	next(t, ch, bus.TopicOutcomes)

	var phases []string
	res, err := f.app.ProcessDocumentWithProgress(ctx, pyramid.Request{Text: "teh text is fixd"}, func(ev pyramid.ProgressEvent) {
		phases = append(phases, ev.Phase)
	})
	require.NoError(t, err)

	assert.Equal(t, pyramid.Memo, res.DocumentType, "configured default type")
	assert.Equal(t, "Outlook", res.SourceApp, "source app of the last capture")
	assert.NotEmpty(t, res.FinalDocument)
	assert.Contains(t, phases, pyramid.PhaseComplete)
	assert.True(t, strings.HasPrefix(f.model.firstSystem(), prompts.MustGet(prompts.Pyramidal, "detect-language")),
		"explicit type skips classification")
}

func TestProcessDocument_RequestOverridesDefaults(t *testing.T) {
	f := newFixture(t, testConfig())

	res, err := f.app.ProcessDocument(context.Background(), pyramid.Request{
		Text:         "notes for the team",
		DocumentType: pyramid.Wiki,
		SourceApp:    "Confluence",
	})
	require.NoError(t, err)
	assert.Equal(t, pyramid.Wiki, res.DocumentType)
	assert.Equal(t, "Confluence", res.SourceApp)
}

func TestPasteBack(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.ErrorIs(t, f.app.PasteBackToSourceApp(ctx, "  "), actions.ErrNothingToPaste)

	ch, err := f.app.Subscribe(ctx, bus.TopicOutcomes)
	require.NoError(t, err)
	require.NoError(t, f.app.Start(ctx))
	now := time.Now()
	press(f.app, now)
	press(f.app, now.Add(10*time.Millisecond))
	next(t, ch, bus.TopicOutcomes)

	require.NoError(t, f.app.PasteBackToSourceApp(ctx, "**Approved** text"))
	text, html, _ := f.clip.Snapshot()
	assert.Equal(t, "Approved text", text)
	assert.Contains(t, html, "<strong>Approved</strong>")
	assert.Equal(t, []string{"Outlook"}, f.auto.Pastes)

	f.auto.PasteErr = errors.New("window gone")
	assert.Error(t, f.app.PasteBackToSourceApp(ctx, "again"))
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t, testConfig())

	updated := testConfig()
	updated.Hotkey.DoublePressMS = 400
	updated.RichText.AppPatterns = []string{"Word"}
	updated.Pipeline.Thresholds.SubjectConfidence = 0.9
	f.app.ApplyConfig(updated)

	assert.Equal(t, 400*time.Millisecond, f.app.dispatcher.Threshold())
	assert.Same(t, updated, f.app.Config())
	assert.InDelta(t, 0.9, f.app.pipeline.Load().Thresholds().SubjectConfidence, 1e-9)
	assert.False(t, f.app.matcher.Supports("Outlook"))
	assert.True(t, f.app.matcher.Supports("Microsoft Word"))
}

func TestWatchConfig_AppliesReload(t *testing.T) {
	t.Setenv("FIXMYTEXT_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FIXMYTEXT_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "fixmytext.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hotkey:\n  double_press_ms: 200\n"), 0o644))

	f := newFixture(t, testConfig())
	require.NoError(t, f.app.WatchConfig(context.Background(), path))

	require.NoError(t, os.WriteFile(path, []byte("hotkey:\n  double_press_ms: 300\n"), 0o644))
	assert.Eventually(t, func() bool {
		return f.app.dispatcher.Threshold() == 300*time.Millisecond
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStartCloseLifecycle(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	require.NoError(t, f.app.Start(ctx))
	require.NoError(t, f.app.Start(ctx))
	require.NoError(t, f.app.Close())
	require.NoError(t, f.app.Close())
	assert.Error(t, f.app.Start(ctx))
}
