package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every configuration validation failure.
var ErrConfiguration = errors.New("configuration error")

// ConfigError names the offending environment variable.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

func invalid(key string, err error) *ConfigError {
	return &ConfigError{Key: key, Err: err}
}
