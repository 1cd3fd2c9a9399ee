package ratelimit

import "time"

// EndpointConfig is the limit for one endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method
	Limit  int           // requests per window; zero means unlimited
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL   time.Duration
	Endpoints []EndpointConfig
}

func (c *Config) idleTTL() time.Duration {
	if c.IdleTTL <= 0 {
		return time.Hour
	}
	return c.IdleTTL
}

// ConfigFor derives bridge limits from a per-minute request budget.
// Pipeline runs get a tenth of the budget since each one makes several model
// calls. A budget of zero disables limiting.
func ConfigFor(perMinute int) *Config {
	if perMinute <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    perMinute,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Endpoints:       DefaultEndpointConfigs(perMinute),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits for a budget.
func DefaultEndpointConfigs(perMinute int) []EndpointConfig {
	pipeline := max(perMinute/10, 1)
	burst := min(pipeline, 3)
	return []EndpointConfig{
		{Path: "/process", Method: "POST", Limit: pipeline, Window: time.Minute, Burst: burst},
		{Path: "/process/stream", Method: "POST", Limit: pipeline, Window: time.Minute, Burst: burst},
		{Path: "/paste-back", Method: "POST", Limit: max(perMinute/4, 1), Window: time.Minute},
		// Gestures arrive in pairs within the double-press window
		{Path: "/hotkey", Method: "POST", Limit: perMinute * 2, Window: time.Minute, Burst: 20},
	}
}
