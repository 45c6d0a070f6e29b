package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SCRIBE_PROVIDER", "SCRIBE_LANGUAGE", "SCRIBE_BASE_DIR", "SCRIBE_PROXY", "SCRIBE_TIMEOUT",
	"SCRIBE_RETRIES", "SCRIBE_RETRY_BACKOFF", "SCRIBE_SKIP_SILENCE",
	"GOOGLE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_SPEECH_ENDPOINT",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "WHISPER_MODEL",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogle, cfg.Provider)
	assert.Empty(t, cfg.Language)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Zero(t, cfg.Retries)
	assert.False(t, cfg.SkipSilence)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"SCRIBE_PROVIDER=OpenAI\nOPENAI_API_KEY=sk-test\nSCRIBE_RETRIES=3\nSCRIBE_RETRY_BACKOFF=250ms\nSCRIBE_SKIP_SILENCE=true\n",
	), 0o644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.SkipSilence)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRIBE_LANGUAGE", "en-GB")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCRIBE_LANGUAGE=fr-FR\n"), 0o644))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "en-GB", cfg.Language)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_BadValues(t *testing.T) {
	for key, val := range map[string]string{
		"SCRIBE_TIMEOUT":       "soon",
		"SCRIBE_RETRY_BACKOFF": "10",
		"SCRIBE_RETRIES":       "many",
		"SCRIBE_SKIP_SILENCE":  "perhaps",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load("")
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestValidate(t *testing.T) {
	creds := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"type":"service_account"}`), 0o600))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "google with adc", cfg: Config{Provider: ProviderGoogle}},
		{name: "google with api key", cfg: Config{Provider: ProviderGoogle, GoogleAPIKey: "AIza", GoogleCredentials: "/nope.json"}},
		{name: "google with credentials file", cfg: Config{Provider: ProviderGoogle, GoogleCredentials: creds}},
		{name: "google with missing credentials file", cfg: Config{Provider: ProviderGoogle, GoogleCredentials: "/nope.json"}, wantErr: "not set to a real file"},
		{name: "google with credentials dir", cfg: Config{Provider: ProviderGoogle, GoogleCredentials: filepath.Dir(creds)}, wantErr: "directory"},
		{name: "openai without key", cfg: Config{Provider: ProviderOpenAI}, wantErr: "OPENAI_API_KEY"},
		{name: "whisper without model", cfg: Config{Provider: ProviderWhisper}, wantErr: "WHISPER_MODEL"},
		{name: "whisper with model", cfg: Config{Provider: ProviderWhisper, WhisperModel: "ggml-base.bin"}},
		{name: "unknown provider", cfg: Config{Provider: "deepgram"}, wantErr: "unsupported provider"},
		{name: "negative retries", cfg: Config{Provider: ProviderGoogle, Retries: -1}, wantErr: "retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
