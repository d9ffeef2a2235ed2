package config

import (
	"encoding/json"
)

// ConfigSanitizer sanitizes sensitive configuration data.
type ConfigSanitizer interface {
	// Sanitize removes or redacts sensitive fields.
	Sanitize(cfg *Config) *Config
}

// DefaultConfigSanitizer implements ConfigSanitizer.
type DefaultConfigSanitizer struct {
	redactionValue string
}

// NewDefaultConfigSanitizer creates a new DefaultConfigSanitizer.
func NewDefaultConfigSanitizer() ConfigSanitizer {
	return &DefaultConfigSanitizer{
		redactionValue: "***REDACTED***",
	}
}

// NewConfigSanitizer creates a ConfigSanitizer with a custom redaction value.
func NewConfigSanitizer(redactionValue string) ConfigSanitizer {
	return &DefaultConfigSanitizer{
		redactionValue: redactionValue,
	}
}

// Sanitize removes or redacts sensitive fields from configuration,
// safe to log or include in a startup dump.
func (s *DefaultConfigSanitizer) Sanitize(cfg *Config) *Config {
	sanitized := s.deepCopy(cfg)

	sanitized.Database.Password = s.redactionValue
	sanitized.Redis.Password = s.redactionValue

	if sanitized.ConfigSource.MockStaticHash != "" {
		sanitized.ConfigSource.MockStaticHash = s.redactionValue
	}

	return sanitized
}

// deepCopy creates a deep copy of Config using JSON serialization.
func (s *DefaultConfigSanitizer) deepCopy(cfg *Config) *Config {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}

	var configCopy Config
	if err := json.Unmarshal(configJSON, &configCopy); err != nil {
		return cfg
	}

	return &configCopy
}
