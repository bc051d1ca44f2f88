// Package config holds the process-level settings shared by every handler.
// Per-resource settings come from the CloudFormation event instead.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level // LOG_LEVEL
	DefaultRegion string        // AWS_REGION, used when CognitoRegion is absent
	JournalTable  string        // JOURNAL_TABLE, optional
	VerifyTimeout time.Duration // VERIFY_TIMEOUT, bound on the client-credentials check
}

const defaultVerifyTimeout = 10 * time.Second

// FromEnv reads the configuration from the Lambda environment.
func FromEnv() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{
		LogLevel:      zapcore.InfoLevel,
		VerifyTimeout: defaultVerifyTimeout,
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}
	if v, ok := lookup("AWS_REGION"); ok {
		cfg.DefaultRegion = v
	}
	if v, ok := lookup("JOURNAL_TABLE"); ok {
		cfg.JournalTable = v
	}
	if v, ok := lookup("VERIFY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid VERIFY_TIMEOUT %q: %w", v, err)
		}
		cfg.VerifyTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive")
	}
	return nil
}

// Region returns the region from the event, falling back to AWS_REGION.
func (c *Config) Region(eventRegion string) string {
	if eventRegion != "" {
		return eventRegion
	}
	return c.DefaultRegion
}
