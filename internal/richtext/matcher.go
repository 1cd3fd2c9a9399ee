package richtext

import (
	"strings"
	"sync/atomic"
)

// MatcherConfig selects the applications that accept HTML paste.
type MatcherConfig struct {
	Enabled     bool     `yaml:"enabled"`
	AppPatterns []string `yaml:"app_patterns"`
}

// DefaultMatcherConfig covers common mail and chat clients.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Enabled:     true,
		AppPatterns: []string{"Outlook", "Thunderbird", "Teams", "Slack", "Word", "Confluence", "Gmail"},
	}
}

type compiledPatterns struct {
	enabled  bool
	patterns []string
}

// Matcher answers supports-rich-clipboard queries. It can be updated while in use.
type Matcher struct {
	current atomic.Pointer[compiledPatterns]
}

// NewMatcher creates a Matcher.
func NewMatcher(cfg MatcherConfig) *Matcher {
	m := &Matcher{}
	m.Update(cfg)
	return m
}

// Update swaps the pattern set.
func (m *Matcher) Update(cfg MatcherConfig) {
	c := &compiledPatterns{enabled: cfg.Enabled}
	for _, p := range cfg.AppPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.patterns = append(c.patterns, p)
		}
	}
	m.current.Store(c)
}

// Supports reports whether app contains any configured pattern, case-insensitively.
func (m *Matcher) Supports(app string) bool {
	c := m.current.Load()
	if c == nil || !c.enabled || app == "" {
		return false
	}
	app = strings.ToLower(app)
	for _, p := range c.patterns {
		if strings.Contains(app, p) {
			return true
		}
	}
	return false
}
