package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name       string
		bcryptCost string
		pepper     string
		wantCost   int
		wantErr    bool
	}{
		{name: "default cost", wantCost: 12},
		{name: "valid cost", bcryptCost: "10", wantCost: 10},
		{name: "cost too low", bcryptCost: "9", wantErr: true},
		{name: "cost too high", bcryptCost: "15", wantErr: true},
		{name: "invalid cost", bcryptCost: "invalid", wantErr: true},
		{name: "with pepper", bcryptCost: "12", pepper: "test-pepper", wantCost: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.bcryptCost != "" {
				t.Setenv("BCRYPT_COST", tt.bcryptCost)
			}
			if tt.pepper != "" {
				t.Setenv("PASSWORD_PEPPER", tt.pepper)
			}

			cfg, err := NewPasswordConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
			assert.Equal(t, tt.pepper, cfg.Pepper)
		})
	}
}

// fastConfig skips normalize so tests can hash at bcrypt's minimum cost.
func fastConfig(pepper string) *PasswordConfig {
	return &PasswordConfig{BcryptCost: bcrypt.MinCost, Pepper: pepper}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg := fastConfig("")

	hash, err := cfg.HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, cfg.VerifyPassword("correct horse battery", hash))
	assert.False(t, cfg.VerifyPassword("wrong", hash))
	assert.False(t, cfg.VerifyPassword("correct horse battery", "not-a-hash"))
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered := fastConfig("pepper-1")
	hash, err := peppered.HashPassword("secret-password")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("secret-password", hash))
	assert.False(t, fastConfig("").VerifyPassword("secret-password", hash), "pepper is required to verify")
	assert.False(t, fastConfig("pepper-2").VerifyPassword("secret-password", hash), "rotated pepper must not verify")
}

func TestPasswordConfig_SaltUniqueness(t *testing.T) {
	cfg := fastConfig("")
	first, err := cfg.HashPassword("same-password")
	require.NoError(t, err)
	second, err := cfg.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, cfg.VerifyPassword("same-password", first))
	assert.True(t, cfg.VerifyPassword("same-password", second))
}

func TestPasswordConfig_PasswordExceeding72Bytes(t *testing.T) {
	_, err := fastConfig("").HashPassword(strings.Repeat("a", 80))
	assert.Error(t, err)
}
