package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
}

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name          string
		secret        string
		expiration    string
		expectedHours int
		wantErr       bool
	}{
		{name: "custom expiration 12 hours", secret: "k", expiration: "12", expectedHours: 12},
		{name: "minimum expiration 1 hour", secret: "k", expiration: "1", expectedHours: 1},
		{name: "one week", secret: "k", expiration: "168", expectedHours: 168},
		{name: "zero expiration", secret: "k", expiration: "0", wantErr: true},
		{name: "negative expiration", secret: "k", expiration: "-5", wantErr: true},
		{name: "non-numeric expiration", secret: "k", expiration: "abc", wantErr: true},
		{name: "missing secret", secret: "", expiration: "24", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.secret != "" {
				t.Setenv("JWT_SECRET", tt.secret)
			}
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedHours, cfg.ExpirationHours)
		})
	}
}
