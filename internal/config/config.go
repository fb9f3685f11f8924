// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that reads as a Go duration string ("15s") in JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from the environment or defaults.
type Config struct {
	// Server
	Port          int    `json:"port,omitempty"`            // HTTP listen port
	PublicBaseURL string `json:"public_base_url,omitempty"` // Externally reachable URL used for provider callbacks

	// Dialogue model
	GeminiAPIKey      string `json:"gemini_api_key,omitempty"`      // Gemini API key
	ModelTier         string `json:"model_tier,omitempty"`          // lite, standard or advanced
	TerminationMarker string `json:"termination_marker,omitempty"` // Token that prefixes the agent's final utterance

	// Telephony
	TwilioAccountSID string `json:"twilio_account_sid,omitempty"`
	TwilioAuthToken  string `json:"twilio_auth_token,omitempty"`
	TwilioFromNumber string `json:"twilio_from_number,omitempty"`
	ValidateWebhooks bool   `json:"validate_webhooks,omitempty"` // Require a valid X-Twilio-Signature on webhooks

	// Behavior
	DefaultLanguage      string   `json:"default_language,omitempty"`       // en or es
	TurnTimeout          Duration `json:"turn_timeout,omitempty"`           // Bound on one dialogue model round trip
	ProviderTimeout      Duration `json:"provider_timeout,omitempty"`       // Bound on one telephony request
	GatherTimeoutSeconds int      `json:"gather_timeout_seconds,omitempty"` // Silence window while waiting for the supplier
	StuckJobAfter        Duration `json:"stuck_job_after,omitempty"`        // Idle time after which a live job is failed
	StuckJobInterval     Duration `json:"stuck_job_interval,omitempty"`     // How often stuck jobs are swept

	// Storage and logging
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for the call archive
	LogLevel    string `json:"log_level,omitempty"`
}

// Defaults returns the values used when neither file nor environment sets a field.
func Defaults() Config {
	return Config{
		Port:                 8080,
		ModelTier:            "standard",
		TerminationMarker:    "[END_CALL]",
		DefaultLanguage:      "en",
		TurnTimeout:          Duration(15 * time.Second),
		ProviderTimeout:      Duration(10 * time.Second),
		GatherTimeoutSeconds: 5,
		StuckJobAfter:        Duration(10 * time.Minute),
		StuckJobInterval:     Duration(time.Minute),
		LogLevel:             "info",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: the optional file at path, then
// environment variables, then defaults for anything still unset.
func Load(path string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	return merged, nil
}

// ApplyEnv overlays values from environment variables onto the config.
// lookup is os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("MODEL_TIER", &c.ModelTier)
	str("TERMINATION_MARKER", &c.TerminationMarker)
	str("TWILIO_ACCOUNT_SID", &c.TwilioAccountSID)
	str("TWILIO_AUTH_TOKEN", &c.TwilioAuthToken)
	str("TWILIO_FROM_NUMBER", &c.TwilioFromNumber)
	str("DEFAULT_LANGUAGE", &c.DefaultLanguage)
	str("DATABASE_URL", &c.DatabaseURL)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: PORT must be a number: %w", err)
		}
		c.Port = port
	}
	if v, ok := lookup("GATHER_TIMEOUT_SECONDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: GATHER_TIMEOUT_SECONDS must be a number: %w", err)
		}
		c.GatherTimeoutSeconds = n
	}
	if v, ok := lookup("VALIDATE_WEBHOOKS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: VALIDATE_WEBHOOKS must be a boolean: %w", err)
		}
		c.ValidateWebhooks = b
	}

	durations := map[string]*Duration{
		"TURN_TIMEOUT":       &c.TurnTimeout,
		"PROVIDER_TIMEOUT":   &c.ProviderTimeout,
		"STUCK_JOB_AFTER":    &c.StuckJobAfter,
		"STUCK_JOB_INTERVAL": &c.StuckJobInterval,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be a duration: %w", key, err)
		}
		*dst = Duration(d)
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Credentials are not required here; the serve command checks the ones it needs.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'public_base_url' must be an absolute URL")
		}
	}
	switch c.ModelTier {
	case "", "lite", "standard", "advanced":
	default:
		return fmt.Errorf("config error: 'model_tier' must be lite, standard or advanced")
	}
	switch c.DefaultLanguage {
	case "", "en", "es":
	default:
		return fmt.Errorf("config error: 'default_language' must be en or es")
	}
	if strings.ContainsAny(c.TerminationMarker, "{}") {
		return fmt.Errorf("config error: 'termination_marker' must not contain braces")
	}
	if c.GatherTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'gather_timeout_seconds' must be non-negative")
	}
	for name, d := range map[string]Duration{
		"turn_timeout":       c.TurnTimeout,
		"provider_timeout":   c.ProviderTimeout,
		"stuck_job_after":    c.StuckJobAfter,
		"stuck_job_interval": c.StuckJobInterval,
	} {
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	if c.StuckJobAfter > 0 && c.TurnTimeout > 0 && c.StuckJobAfter <= c.TurnTimeout {
		return fmt.Errorf("config error: 'stuck_job_after' must exceed 'turn_timeout'")
	}
	return nil
}

// ValidateTelephony checks the settings needed to place real calls.
func (c *Config) ValidateTelephony() error {
	var missing []string
	if c.TwilioAccountSID == "" {
		missing = append(missing, "twilio_account_sid")
	}
	if c.TwilioAuthToken == "" {
		missing = append(missing, "twilio_auth_token")
	}
	if c.TwilioFromNumber == "" {
		missing = append(missing, "twilio_from_number")
	}
	if c.PublicBaseURL == "" {
		missing = append(missing, "public_base_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config error: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.PublicBaseURL == "" {
		result.PublicBaseURL = defaults.PublicBaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if result.TerminationMarker == "" {
		result.TerminationMarker = defaults.TerminationMarker
	}
	if result.TwilioAccountSID == "" {
		result.TwilioAccountSID = defaults.TwilioAccountSID
	}
	if result.TwilioAuthToken == "" {
		result.TwilioAuthToken = defaults.TwilioAuthToken
	}
	if result.TwilioFromNumber == "" {
		result.TwilioFromNumber = defaults.TwilioFromNumber
	}
	if result.DefaultLanguage == "" {
		result.DefaultLanguage = defaults.DefaultLanguage
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Numeric fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.GatherTimeoutSeconds == 0 {
		result.GatherTimeoutSeconds = defaults.GatherTimeoutSeconds
	}
	if result.TurnTimeout == 0 {
		result.TurnTimeout = defaults.TurnTimeout
	}
	if result.ProviderTimeout == 0 {
		result.ProviderTimeout = defaults.ProviderTimeout
	}
	if result.StuckJobAfter == 0 {
		result.StuckJobAfter = defaults.StuckJobAfter
	}
	if result.StuckJobInterval == 0 {
		result.StuckJobInterval = defaults.StuckJobInterval
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
