package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"port": 9090,
		"public_base_url": "https://calls.example.com",
		"twilio_from_number": "+15550000",
		"turn_timeout": "20s",
		"stuck_job_after": 600,
		"validate_webhooks": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://calls.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "+15550000", cfg.TwilioFromNumber)
	assert.Equal(t, 20*time.Second, cfg.TurnTimeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.StuckJobAfter.Std())
	assert.True(t, cfg.ValidateWebhooks)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"turn_timeout": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{Port: 9090, TwilioFromNumber: "+1file"}
	err := cfg.ApplyEnv(envMap(map[string]string{
		"PORT":               "7070",
		"TWILIO_FROM_NUMBER": "+1env",
		"GEMINI_API_KEY":     "key",
		"VALIDATE_WEBHOOKS":  "true",
		"TURN_TIMEOUT":       "3s",
		"DEFAULT_LANGUAGE":   "",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "+1env", cfg.TwilioFromNumber)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.True(t, cfg.ValidateWebhooks)
	assert.Equal(t, 3*time.Second, cfg.TurnTimeout.Std())
	assert.Empty(t, cfg.DefaultLanguage)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"PORT":                   "eighty",
		"GATHER_TIMEOUT_SECONDS": "x",
		"VALIDATE_WEBHOOKS":      "maybe",
		"STUCK_JOB_AFTER":        "forever",
	} {
		t.Run(key, func(t *testing.T) {
			cfg := &Config{}
			err := cfg.ApplyEnv(envMap(map[string]string{key: value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{Port: 9090, DefaultLanguage: "es"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 9090, merged.Port)
	assert.Equal(t, "es", merged.DefaultLanguage)
	assert.Equal(t, "[END_CALL]", merged.TerminationMarker)
	assert.Equal(t, "standard", merged.ModelTier)
	assert.Equal(t, 15*time.Second, merged.TurnTimeout.Std())
	assert.Equal(t, 5, merged.GatherTimeoutSeconds)
	assert.Equal(t, time.Minute, merged.StuckJobInterval.Std())
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 70000 }, "port"},
		{"base url", func(c *Config) { c.PublicBaseURL = "calls.example.com" }, "public_base_url"},
		{"tier", func(c *Config) { c.ModelTier = "turbo" }, "model_tier"},
		{"language", func(c *Config) { c.DefaultLanguage = "fr" }, "default_language"},
		{"marker", func(c *Config) { c.TerminationMarker = "{END}" }, "termination_marker"},
		{"gather", func(c *Config) { c.GatherTimeoutSeconds = -1 }, "gather_timeout_seconds"},
		{"negative duration", func(c *Config) { c.ProviderTimeout = Duration(-time.Second) }, "provider_timeout"},
		{"stuck window", func(c *Config) { c.StuckJobAfter = Duration(time.Second) }, "stuck_job_after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateTelephony(t *testing.T) {
	cfg := Defaults()
	err := cfg.ValidateTelephony()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio_account_sid")
	assert.Contains(t, err.Error(), "public_base_url")

	cfg.TwilioAccountSID = "AC1"
	cfg.TwilioAuthToken = "token"
	cfg.TwilioFromNumber = "+1"
	cfg.PublicBaseURL = "https://calls.example.com"
	assert.NoError(t, cfg.ValidateTelephony())
}

func TestLoad_FileEnvDefaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"port": 9090, "log_level": "debug"}`), 0644))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "[END_CALL]", cfg.TerminationMarker)
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))
}
