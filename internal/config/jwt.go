package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// JWTConfig holds the settings for bridge tokens issued to the UI shell.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	// Generated is true when no secret was configured and one was created for this process
	Generated bool
}

// NewJWTConfig derives the token configuration from the server section.
// Without a configured secret a random one is generated, so tokens only
// survive until the process exits.
func (c *Config) NewJWTConfig() (*JWTConfig, error) {
	jc := &JWTConfig{
		Secret:          c.Server.Secret,
		ExpirationHours: c.Server.TokenTTLHours,
	}
	if jc.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		jc.Secret = secret
		jc.Generated = true
	}

	if err := jc.normalize(); err != nil {
		return nil, err
	}
	return jc, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("FIXMYTEXT_SERVER_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("token_ttl_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate server secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
