// Package hotkey turns raw global hotkey notifications into semantic triggers.
// A single press becomes SilentFixTriggered once the double-press window has
// elapsed; a second press inside the window becomes UIAssistedTriggered.
package hotkey

import (
	"fmt"
	"strings"
	"time"
)

// Transition is the key edge reported by the OS hook.
type Transition int

const (
	Pressed Transition = iota
	Released
)

func (t Transition) String() string {
	if t == Released {
		return "released"
	}
	return "pressed"
}

// ParseTransition accepts "pressed" or "released".
func ParseTransition(s string) (Transition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pressed", "press":
		return Pressed, nil
	case "released", "release":
		return Released, nil
	}
	return Pressed, fmt.Errorf("unknown transition %q", s)
}

// Event is one raw hotkey notification.
type Event struct {
	HotkeyID   string
	Transition Transition
	Timestamp  time.Time
}

// Trigger is the semantic outcome of a completed gesture.
type Trigger string

const (
	SilentFixTriggered  Trigger = "shortcut:silent-fix"
	UIAssistedTriggered Trigger = "shortcut:ui-assisted"
)

// State of the dispatcher.
type State int

const (
	Idle State = iota
	AwaitingSecondClick
)

func (s State) String() string {
	if s == AwaitingSecondClick {
		return "awaiting_second_click"
	}
	return "idle"
}

// DefaultDoublePressThreshold is the window in which a second press counts as a double press.
const DefaultDoublePressThreshold = 200 * time.Millisecond

// Config controls gesture classification.
type Config struct {
	// HotkeyID filters events; empty accepts every identifier.
	HotkeyID             string
	DoublePressThreshold time.Duration
	// TriggerOn selects which edge counts as a click.
	TriggerOn Transition
	// Buffer is the capacity of the trigger channel.
	Buffer int
}

func (c Config) withDefaults() Config {
	if c.DoublePressThreshold <= 0 {
		c.DoublePressThreshold = DefaultDoublePressThreshold
	}
	if c.Buffer <= 0 {
		c.Buffer = 8
	}
	return c
}
