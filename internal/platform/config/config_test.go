package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ALTID_AI_PROVIDER", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, ProviderStub, cfg.AI.Provider)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Verification.SignatureDelay)
	assert.Equal(t, 8*time.Second, cfg.Verification.RedirectDelay)
	assert.Equal(t, "/?verified=true", cfg.Verification.RedirectURL)
	assert.Equal(t, "hackathon.io", cfg.Token.Audience)
	assert.Equal(t, "https://hackathon.io/form", cfg.Token.RedirectURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ALTID_AI_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("ALTID_SIGNATURE_DELAY", "0s")
	t.Setenv("ALTID_SESSION_TTL", "5m")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, time.Duration(0), cfg.Verification.SignatureDelay)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("ALTID_AI_PROVIDER", "gemini")
		t.Setenv("GEMINI_API_KEY", "")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("ALTID_AI_PROVIDER", "openai")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("ALTID_AI_PROVIDER", "stub")
		t.Setenv("ALTID_AI_TIMEOUT", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ALTID_AI_TIMEOUT")
	})
}
