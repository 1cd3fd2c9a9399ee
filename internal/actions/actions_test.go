package actions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/richtext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient is a mock implementation of llm.Client
type MockLLMClient struct {
	GenerateFunc func(ctx context.Context, systemPrompt, text string, tier llm.ModelTier) (string, error)
	mu           sync.Mutex
	inputs       []string
}

func (m *MockLLMClient) Generate(ctx context.Context, systemPrompt, text string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, text)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, text, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier llm.ModelTier) (string, error) {
	return m.Generate(ctx, systemPrompt, text, tier)
}

func (m *MockLLMClient) Model(tier llm.ModelTier) string { return "mock" }
func (m *MockLLMClient) Close() error                  { return nil }

func (m *MockLLMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type recordingPublisher struct {
	events []TextReady
	err    error
}

func (p *recordingPublisher) PublishTextReady(_ context.Context, ev TextReady) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func testDeps(clip *clipboard.Memory, auto *clipboard.Recorder, richApps ...string) Deps {
	return Deps{
		Clipboard:   clip,
		Automation:  auto,
		Matcher:     richtext.NewMatcher(richtext.MatcherConfig{Enabled: len(richApps) > 0, AppPatterns: richApps}),
		SettleDelay: -1,
	}
}

func TestSilentFix_Applied(t *testing.T) {
	clip := clipboard.NewMemory("teh quick fox")
	auto := &clipboard.Recorder{App: "Notepad"}
	model := &MockLLMClient{
		GenerateFunc: func(_ context.Context, system, text string, tier llm.ModelTier) (string, error) {
			assert.Contains(t, system, "grammar and spelling optimizer")
			assert.True(t, strings.HasPrefix(text, "[PLAIN]\n"))
			assert.Equal(t, llm.TierStandard, tier)
			return "The quick fox.", nil
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeApplied, outcome)
	text, html, writes := clip.Snapshot()
	assert.Equal(t, "The quick fox.", text)
	assert.Empty(t, html)
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, auto.Copies)
	assert.Equal(t, []string{""}, auto.Pastes)
}

func TestSilentFix_WithTierReachesModel(t *testing.T) {
	for _, tier := range []llm.ModelTier{llm.TierLite, llm.TierAdvanced} {
		t.Run(string(tier), func(t *testing.T) {
			clip := clipboard.NewMemory("teh quick fox")
			auto := &clipboard.Recorder{App: "Notepad"}
			var got llm.ModelTier
			model := &MockLLMClient{
				GenerateFunc: func(_ context.Context, _, _ string, tier llm.ModelTier) (string, error) {
					got = tier
					return "The quick fox.", nil
				},
			}

			outcome := NewSilentFix(testDeps(clip, auto), model).WithTier(tier).Execute(context.Background())

			assert.Equal(t, OutcomeApplied, outcome)
			assert.Equal(t, tier, got)
		})
	}
}

func TestSilentFix_RichTarget(t *testing.T) {
	clip := clipboard.NewMemory("pls check budget")
	auto := &clipboard.Recorder{App: "Inbox - Outlook"}
	model := &MockLLMClient{
		GenerateFunc: func(_ context.Context, _, text string, _ llm.ModelTier) (string, error) {
			assert.True(t, strings.HasPrefix(text, "[MARKDOWN]\n"))
			return "[MARKDOWN]\nPlease check the **budget**.", nil
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto, "outlook"), model).Execute(context.Background())

	assert.Equal(t, OutcomeApplied, outcome)
	text, html, _ := clip.Snapshot()
	assert.Contains(t, html, "<strong>budget</strong>")
	assert.Equal(t, "Please check the budget.", text)
}

func TestSilentFix_EmptyClipboard(t *testing.T) {
	clip := clipboard.NewMemory("   ")
	auto := &clipboard.Recorder{}
	model := &MockLLMClient{}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeEmpty, outcome)
	_, _, writes := clip.Snapshot()
	assert.Equal(t, 0, writes)
	assert.Equal(t, 0, auto.PasteCount())
	assert.Equal(t, 0, model.calls())
}

func TestSilentFix_ProviderError(t *testing.T) {
	clip := clipboard.NewMemory("original text")
	auto := &clipboard.Recorder{}
	model := &MockLLMClient{
		GenerateFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
			return "", &llm.ProviderError{Provider: llm.ProviderOpenAI, Kind: llm.KindRateLimit, Message: "slow down"}
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeFailed, outcome)
	text, _, writes := clip.Snapshot()
	assert.Equal(t, "original text", text)
	assert.Equal(t, 0, writes)
	assert.Equal(t, 0, auto.PasteCount())
}

func TestSilentFix_EmptyModelReply(t *testing.T) {
	clip := clipboard.NewMemory("original text")
	auto := &clipboard.Recorder{}
	model := &MockLLMClient{
		GenerateFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
			return "[PLAIN]\n  ", nil
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeFailed, outcome)
	text, _, _ := clip.Snapshot()
	assert.Equal(t, "original text", text)
	assert.Equal(t, 0, auto.PasteCount())
}

func TestSilentFix_WriteFailureSkipsPaste(t *testing.T) {
	clip := clipboard.NewMemory("original text")
	clip.WriteErr = errors.New("locked by another process")
	auto := &clipboard.Recorder{}
	model := &MockLLMClient{
		GenerateFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
			return "Original text.", nil
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 0, auto.PasteCount())
}

func TestSilentFix_CopyFailureAborts(t *testing.T) {
	clip := clipboard.NewMemory("stale content")
	auto := &clipboard.Recorder{CopyErr: errors.New("no focus")}
	model := &MockLLMClient{}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 0, model.calls())
	assert.Equal(t, 0, auto.PasteCount())
}

func TestSilentFix_PasteFailureStillApplied(t *testing.T) {
	clip := clipboard.NewMemory("txt")
	auto := &clipboard.Recorder{PasteErr: errors.New("no window")}
	model := &MockLLMClient{
		GenerateFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
			return "Text.", nil
		},
	}

	outcome := NewSilentFix(testDeps(clip, auto), model).Execute(context.Background())

	assert.Equal(t, OutcomeApplied, outcome)
	text, _, _ := clip.Snapshot()
	assert.Equal(t, "Text.", text)
}

func TestUIAssisted_ExecutePublishes(t *testing.T) {
	clip := clipboard.NewMemory("draft mail")
	auto := &clipboard.Recorder{App: "Thunderbird"}
	pub := &recordingPublisher{}
	action := NewUIAssisted(testDeps(clip, auto), pub)

	outcome := action.Execute(context.Background())

	assert.Equal(t, OutcomeCaptured, outcome)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "draft mail", pub.events[0].Text)
	assert.Equal(t, "Thunderbird", pub.events[0].SourceApp)

	captured, ok := action.Captured()
	require.True(t, ok)
	assert.Equal(t, pub.events[0].CaptureID, captured.ID)
	assert.Equal(t, 0, auto.PasteCount())
}

func TestUIAssisted_EmptyDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	action := NewUIAssisted(testDeps(clipboard.NewMemory(""), &clipboard.Recorder{}), pub)

	assert.Equal(t, OutcomeEmpty, action.Execute(context.Background()))
	assert.Empty(t, pub.events)
	_, ok := action.Captured()
	assert.False(t, ok)
}

func TestUIAssisted_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("bus closed")}
	action := NewUIAssisted(testDeps(clipboard.NewMemory("x"), &clipboard.Recorder{}), pub)

	assert.Equal(t, OutcomeFailed, action.Execute(context.Background()))
}

func TestUIAssisted_PasteBackToSourceApp(t *testing.T) {
	clip := clipboard.NewMemory("draft")
	auto := &clipboard.Recorder{App: "Microsoft Outlook"}
	action := NewUIAssisted(testDeps(clip, auto, "outlook"), &recordingPublisher{})
	require.Equal(t, OutcomeCaptured, action.Execute(context.Background()))

	err := action.PasteBackToSourceApp(context.Background(), "**Budget approved**\n- send numbers by Friday")
	require.NoError(t, err)

	text, html, _ := clip.Snapshot()
	assert.Contains(t, html, "<strong>Budget approved</strong>")
	assert.Contains(t, text, "send numbers by Friday")
	assert.Equal(t, []string{"Microsoft Outlook"}, auto.Pastes)
}

func TestUIAssisted_PasteBackHTMLToPlainTarget(t *testing.T) {
	clip := clipboard.NewMemory("draft")
	auto := &clipboard.Recorder{App: "Notepad"}
	action := NewUIAssisted(testDeps(clip, auto), &recordingPublisher{})
	require.Equal(t, OutcomeCaptured, action.Execute(context.Background()))

	require.NoError(t, action.PasteBackToSourceApp(context.Background(), "<p><b>Done</b></p><ul><li>item</li></ul>"))

	text, html, _ := clip.Snapshot()
	assert.Empty(t, html)
	assert.Equal(t, "Done\n- item", text)
}

func TestUIAssisted_PasteBackErrors(t *testing.T) {
	clip := clipboard.NewMemory("draft")
	auto := &clipboard.Recorder{PasteErr: errors.New("gone")}
	action := NewUIAssisted(testDeps(clip, auto), &recordingPublisher{})

	assert.ErrorIs(t, action.PasteBackToSourceApp(context.Background(), "  "), ErrNothingToPaste)

	err := action.PasteBackToSourceApp(context.Background(), "text")
	var autoErr *clipboard.AutomationError
	assert.ErrorAs(t, err, &autoErr)
}

func TestStripFormatTag(t *testing.T) {
	assert.Equal(t, "Hello.", stripFormatTag("[PLAIN]\nHello."))
	assert.Equal(t, "Hello.", stripFormatTag("[MARKDOWN] Hello."))
	assert.Equal(t, "Hello.", stripFormatTag("Hello."))
}
