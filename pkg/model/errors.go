package model

import "fmt"

// ConfigurationError reports unusable input data. It aborts a run before any solve.
type ConfigurationError struct {
	Subject string
	Reason  string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error on %v: %v", err.Subject, err.Reason)
}

func NewConfigurationError(subject string, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
