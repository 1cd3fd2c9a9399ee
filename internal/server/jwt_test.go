package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fixmytext/internal/config"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token, err := service.GenerateToken("ui-shell")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ui-shell", claims.Client)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_UniqueTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)
	a, err := service.GenerateToken("ui-shell")
	require.NoError(t, err)
	b, err := service.GenerateToken("ui-shell")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTService_EmptyClient(t *testing.T) {
	_, err := setupTestJWTService(t, 24).GenerateToken("")
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	service := setupTestJWTService(t, 1)
	token, err := service.GenerateToken("ui-shell")
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := setupTestJWTService(t, 24).GenerateToken("ui-shell")
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{Secret: "another-secret-that-is-long-enough", ExpirationHours: 24})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)

	tests := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"garbage", func() string { return "not.a.token" }},
		{"none algorithm", func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Client: "ui-shell"})
			s, _ := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
			return s
		}},
		{"wrong issuer", func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
				Client:           "ui-shell",
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
			})
			s, _ := tok.SignedString([]byte(testSecret))
			return s
		}},
		{"no client", func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
			})
			s, _ := tok.SignedString([]byte(testSecret))
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token())
			assert.Error(t, err)
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := setupTestJWTService(t, 24)
	token, err := service.GenerateToken("cli")
	require.NoError(t, err)

	claims, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.GetClient())
}
