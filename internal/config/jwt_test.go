package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "interview-test-secret"

func TestNewJWTConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Secret)
	assert.Equal(t, DefaultJWTIssuer, cfg.Issuer)
	assert.Equal(t, 8, cfg.ExpirationHours)
}

func TestNewJWTConfig_Environment(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		expiration string
		wantHours  int
		wantErr    string
	}{
		{name: "custom expiration", secret: testSecret, expiration: "12", wantHours: 12},
		{name: "minimum expiration", secret: testSecret, expiration: "1", wantHours: 1},
		{name: "missing secret", expiration: "12", wantErr: "JWT_SECRET is required"},
		{name: "short secret", secret: "short", wantErr: "at least 16 characters"},
		{name: "zero expiration", secret: testSecret, expiration: "0", wantErr: "at least 1 hour"},
		{name: "negative expiration", secret: testSecret, expiration: "-3", wantErr: "at least 1 hour"},
		{name: "non-numeric expiration", secret: testSecret, expiration: "soon", wantErr: "invalid JWT_EXPIRATION_HOURS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("JWT_ISSUER", "panel")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, cfg.ExpirationHours)
			assert.Equal(t, "panel", cfg.Issuer)
		})
	}
}
